package fingerprint

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/indicator"
)

// ============================================================================
// Mode arbitration
// ============================================================================

// claim moves the node from scan into an admin mode.
func (s *Service) claim(mode Mode) error {
	if s.mode.CompareAndSwap(int32(ModeScan), int32(mode)) {
		return nil
	}
	if s.Mode() == mode {
		return fmt.Errorf("%w: %s", ErrAlreadyInMode, mode)
	}
	return fmt.Errorf("%w: %s requested during %s", ErrBusy, mode, s.Mode())
}

// release hands the sensor back to the scan loop.
func (s *Service) release() {
	s.mode.Store(int32(ModeScan))
	s.sink.ModeChanged(ModeScan)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// runAdmin executes op exclusively and reports the outcome. The mode
// returns to scan on every path out.
func (s *Service) runAdmin(ctx context.Context, mode Mode, slot int, op func(ctx context.Context) (int, error)) (int, error) {
	started := time.Now()
	report := func(slot int, err error) {
		s.sink.AdminCompleted(AdminEvent{
			Op:       mode,
			Slot:     slot,
			Err:      err,
			Started:  started,
			Duration: time.Since(started),
		})
	}

	if !s.started() {
		report(slot, ErrNotStarted)
		return slot, ErrNotStarted
	}
	if err := s.claim(mode); err != nil {
		s.logger.Warn("mode change rejected", "requested", mode.String(), "error", err)
		report(slot, err)
		return slot, err
	}
	s.sink.ModeChanged(mode)
	defer s.release()

	s.portMu.Lock()
	defer s.portMu.Unlock()

	s.logger.Info("admin operation started", "op", mode.String(), "slot", slot)
	result, err := op(ctx)
	if err != nil {
		s.logger.Warn("admin operation failed", "op", mode.String(), "slot", result, "error", err)
		s.indicator.Signal(ctx, indicator.Error)
	} else {
		s.logger.Info("admin operation completed", "op", mode.String(), "slot", result,
			"duration", time.Since(started))
	}
	report(result, err)
	return result, err
}

// ============================================================================
// Operations
// ============================================================================

// Resume requests scan mode. It is a no-op while scanning and fails with
// ErrBusy while an admin operation runs; admin operations return to scan
// on their own.
func (s *Service) Resume() error {
	if m := s.Mode(); m != ModeScan {
		return fmt.Errorf("%w: scan requested during %s", ErrBusy, m)
	}
	return nil
}

// Delete removes the template in slot and reconciles the registry.
func (s *Service) Delete(ctx context.Context, slot int) error {
	_, err := s.runAdmin(ctx, ModeDelete, slot, func(ctx context.Context) (int, error) {
		capacity, _ := s.snapshot()
		if err := checkSlot(slot, capacity); err != nil {
			return slot, err
		}
		if err := s.port.DeleteModel(ctx, slot); err != nil {
			return slot, fmt.Errorf("deleting slot %d: %w", slot, err)
		}
		if err := s.refresh(ctx); err != nil {
			return slot, err
		}
		s.indicator.Signal(ctx, indicator.Success)
		return slot, nil
	})
	return err
}

// Empty erases the whole template library.
func (s *Service) Empty(ctx context.Context) error {
	_, err := s.runAdmin(ctx, ModeEmpty, AnySlot, func(ctx context.Context) (int, error) {
		if err := s.port.EmptyLibrary(ctx); err != nil {
			return AnySlot, fmt.Errorf("emptying library: %w", err)
		}
		if err := s.refresh(ctx); err != nil {
			return AnySlot, err
		}
		s.indicator.Signal(ctx, indicator.Success)
		return AnySlot, nil
	})
	return err
}

// Request dispatches a mode command. slot is used by enroll (AnySlot lets
// the policy choose) and delete.
func (s *Service) Request(ctx context.Context, mode Mode, slot int) error {
	switch mode {
	case ModeScan:
		return s.Resume()
	case ModeEnroll:
		_, err := s.Enroll(ctx, slot)
		return err
	case ModeDelete:
		return s.Delete(ctx, slot)
	case ModeEmpty:
		return s.Empty(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
}
