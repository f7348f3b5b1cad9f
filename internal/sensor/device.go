package sensor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/config"
)

const (
	defaultReadTimeout = time.Second
	searchPageStart    = 0

	// ledSpeed is the breathing/flashing period byte sent with aura commands.
	ledSpeed = 128
	// indexPageSize is the number of slots covered by one index table page.
	indexPageSize = 256
)

// Logger is the optional logging dependency of Device.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// SystemParameters is the decoded reply to the read-system-parameters instruction.
type SystemParameters struct {
	StatusRegister uint16
	SystemID       uint16
	Capacity       int
	SecurityLevel  uint16
	Address        uint32
	PacketSize     uint16
	BaudRate       uint16 // in units of 9600
}

// Options configures a Device.
type Options struct {
	Address     uint32
	Password    uint32
	ReadTimeout time.Duration
	Logger      Logger
}

// Device drives an R30x-family fingerprint module over a byte stream.
//
// Thread Safety:
//   - Each instruction is a write followed by a read of its acknowledgement,
//     serialised by an internal mutex.
type Device struct {
	mu          sync.Mutex
	rw          io.ReadWriteCloser
	address     uint32
	readTimeout time.Duration
	params      SystemParameters
	logger      Logger
}

// Open opens the serial port named in cfg and performs the module handshake.
//
// Parameters:
//   - ctx: Bounds the handshake
//   - cfg: Sensor section of config.yaml
//   - logger: Optional, may be nil
//
// Returns:
//   - *Device: Ready device with system parameters loaded
//   - error: If the port cannot be opened or the handshake fails
func Open(ctx context.Context, cfg config.SensorConfig, logger Logger) (*Device, error) {
	port, err := serial.Open(cfg.Serial, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", cfg.Serial, err)
	}

	readTimeout := time.Duration(cfg.ReadTimeout) * time.Millisecond
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	// Short poll so context cancellation is observed between reads.
	if err := port.SetReadTimeout(readTimeout / 10); err != nil {
		port.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("setting serial read timeout: %w", err)
	}

	dev, err := NewDevice(ctx, port, Options{
		Address:     cfg.Address,
		Password:    cfg.Password,
		ReadTimeout: readTimeout,
		Logger:      logger,
	})
	if err != nil {
		port.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}
	return dev, nil
}

// NewDevice wraps an already open stream, verifies the password and reads
// the system parameters.
func NewDevice(ctx context.Context, rw io.ReadWriteCloser, opts Options) (*Device, error) {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	d := &Device{
		rw:          rw,
		address:     opts.Address,
		readTimeout: opts.ReadTimeout,
		logger:      opts.Logger,
	}

	pw := binary.BigEndian.AppendUint32(nil, opts.Password)
	if _, err := d.transact(ctx, "verify password", append([]byte{cmdVerifyPassword}, pw...)); err != nil {
		return nil, fmt.Errorf("sensor handshake: %w", err)
	}

	params, err := d.readSystemParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("sensor handshake: %w", err)
	}
	d.params = params

	return d, nil
}

// Parameters returns the system parameters read at the last handshake or
// ReadCapacity call.
func (d *Device) Parameters() SystemParameters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

// Close releases the underlying stream.
func (d *Device) Close() error {
	if d.rw == nil {
		return nil
	}
	if err := d.rw.Close(); err != nil {
		return fmt.Errorf("closing sensor: %w", err)
	}
	return nil
}

// =============================================================================
// Port implementation
// =============================================================================

// CaptureImage asks the module to image a finger. ErrNoFinger is the normal
// result while the reader is untouched.
func (d *Device) CaptureImage(ctx context.Context) error {
	_, err := d.transact(ctx, "capture image", []byte{cmdGetImage})
	return err
}

// ImageToTemplate extracts features from the last image into buffer 1 or 2.
func (d *Device) ImageToTemplate(ctx context.Context, buffer int) error {
	if buffer != BufferOne && buffer != BufferTwo {
		return fmt.Errorf("%w: template buffer %d", ErrDevice, buffer)
	}
	_, err := d.transact(ctx, "image to template", []byte{cmdImage2Tz, byte(buffer)})
	return err
}

// CreateModel fuses buffers 1 and 2 into a model.
func (d *Device) CreateModel(ctx context.Context) error {
	_, err := d.transact(ctx, "create model", []byte{cmdRegModel})
	return err
}

// StoreModel writes the model from buffer 1 to slot.
func (d *Device) StoreModel(ctx context.Context, slot int) error {
	if err := d.checkSlot(slot); err != nil {
		return err
	}
	_, err := d.transact(ctx, "store model", []byte{cmdStore, BufferOne, byte(slot >> 8), byte(slot)})
	return err
}

// DeleteModel removes the template in slot.
func (d *Device) DeleteModel(ctx context.Context, slot int) error {
	if err := d.checkSlot(slot); err != nil {
		return err
	}
	_, err := d.transact(ctx, "delete model", []byte{cmdDelete, byte(slot >> 8), byte(slot), 0x00, 0x01})
	return err
}

// EmptyLibrary removes every stored template.
func (d *Device) EmptyLibrary(ctx context.Context) error {
	_, err := d.transact(ctx, "empty library", []byte{cmdEmpty})
	return err
}

// Search compares buffer 1 against the whole library.
func (d *Device) Search(ctx context.Context) (Match, error) {
	capacity := d.capacity()
	reply, err := d.transact(ctx, "search", []byte{
		cmdSearch, BufferOne,
		byte(searchPageStart >> 8), byte(searchPageStart),
		byte(capacity >> 8), byte(capacity),
	})
	if err != nil {
		return Match{}, err
	}
	if len(reply) < 4 {
		return Match{}, fmt.Errorf("%w: search reply %d bytes", ErrUnexpectedResponse, len(reply))
	}
	return Match{
		Slot:       int(binary.BigEndian.Uint16(reply[0:2])),
		Confidence: int(binary.BigEndian.Uint16(reply[2:4])),
	}, nil
}

// ReadTemplateIDs reads the index table pages covering the library and
// returns the occupied slots in ascending order.
func (d *Device) ReadTemplateIDs(ctx context.Context) ([]int, error) {
	capacity := d.capacity()
	pages := (capacity + indexPageSize - 1) / indexPageSize

	var ids []int
	for page := 0; page < pages; page++ {
		reply, err := d.transact(ctx, "read index table", []byte{cmdReadIndexTable, byte(page)})
		if err != nil {
			return nil, err
		}
		for _, id := range decodeIndexTable(page, reply) {
			if id < capacity {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// ReadCapacity re-reads the system parameters and returns the library size.
func (d *Device) ReadCapacity(ctx context.Context) (int, error) {
	params, err := d.readSystemParameters(ctx)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	d.params = params
	d.mu.Unlock()
	return params.Capacity, nil
}

// SetIndicator drives the aura LED ring.
func (d *Device) SetIndicator(ctx context.Context, color Color, mode LEDMode) error {
	_, err := d.transact(ctx, "set indicator", []byte{cmdAuraLED, byte(mode), ledSpeed, byte(color), 0x00})
	return err
}

// =============================================================================
// Transport
// =============================================================================

func (d *Device) capacity() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params.Capacity
}

func (d *Device) checkSlot(slot int) error {
	if capacity := d.capacity(); slot < 0 || (capacity > 0 && slot >= capacity) {
		return fmt.Errorf("%w: slot %d outside [0, %d)", ErrBadLocation, slot, capacity)
	}
	return nil
}

func (d *Device) readSystemParameters(ctx context.Context) (SystemParameters, error) {
	reply, err := d.transact(ctx, "read system parameters", []byte{cmdReadSysPara})
	if err != nil {
		return SystemParameters{}, err
	}
	if len(reply) < 16 {
		return SystemParameters{}, fmt.Errorf("%w: system parameters %d bytes", ErrUnexpectedResponse, len(reply))
	}
	return SystemParameters{
		StatusRegister: binary.BigEndian.Uint16(reply[0:2]),
		SystemID:       binary.BigEndian.Uint16(reply[2:4]),
		Capacity:       int(binary.BigEndian.Uint16(reply[4:6])),
		SecurityLevel:  binary.BigEndian.Uint16(reply[6:8]),
		Address:        binary.BigEndian.Uint32(reply[8:12]),
		PacketSize:     binary.BigEndian.Uint16(reply[12:14]),
		BaudRate:       binary.BigEndian.Uint16(reply[14:16]),
	}, nil
}

// inputResetter is implemented by serial.Port.
type inputResetter interface {
	ResetInputBuffer() error
}

// transact sends one command packet and returns the acknowledgement payload
// after the confirmation code. A non-OK code is returned as *StatusError.
func (d *Device) transact(ctx context.Context, op string, payload []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rw == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if r, ok := d.rw.(inputResetter); ok {
		_ = r.ResetInputBuffer() //nolint:errcheck // Stale bytes are also rejected by framing
	}

	frame := packet{address: d.address, kind: packetCommand, payload: payload}.encode()
	d.logger.Debug("sensor tx", "op", op, "frame", fmt.Sprintf("% X", frame))
	if _, err := d.rw.Write(frame); err != nil {
		return nil, fmt.Errorf("%s: %w: write: %w", op, ErrDevice, err)
	}

	header := make([]byte, headerSize)
	if err := d.readFull(ctx, header); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	_, kind, length, err := parseHeader(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	body := make([]byte, length)
	if err := d.readFull(ctx, body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	reply, err := decodeBody(kind, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d.logger.Debug("sensor rx", "op", op, "payload", fmt.Sprintf("% X", reply))

	if kind != packetAck || len(reply) == 0 {
		return nil, fmt.Errorf("%s: %w: packet type 0x%02X", op, ErrUnexpectedResponse, kind)
	}
	if status := Status(reply[0]); status != StatusOK {
		return nil, &StatusError{Op: op, Status: status}
	}
	return reply[1:], nil
}

// readFull fills buf, tolerating the zero-byte reads a serial port returns
// on its poll timeout until the device read timeout elapses.
func (d *Device) readFull(ctx context.Context, buf []byte) error {
	deadline := time.Now().Add(d.readTimeout)
	for got := 0; got < len(buf); {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := d.rw.Read(buf[got:])
		got += n
		switch {
		case err != nil && !errors.Is(err, io.EOF):
			return fmt.Errorf("%w: read: %w", ErrDevice, err)
		case n == 0 && time.Now().After(deadline):
			return fmt.Errorf("%w: %w after %v", ErrDevice, ErrTimeout, d.readTimeout)
		case n == 0 && errors.Is(err, io.EOF):
			// Stream sources (pipes, test doubles) report EOF; treat like an idle poll.
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}
