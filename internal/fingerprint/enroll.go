package fingerprint

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/indicator"
	"github.com/nerrad567/gray-logic-fingerprint/internal/sensor"
)

// Enroll captures the same finger twice, builds a model and stores it.
//
// Parameters:
//   - ctx: Cancels the enrollment between device steps
//   - slot: Target slot, or AnySlot to let the slot policy choose
//
// Returns:
//   - int: Slot written
//   - error: *EnrollError naming the failed stage, or a mode error
func (s *Service) Enroll(ctx context.Context, slot int) (int, error) {
	return s.runAdmin(ctx, ModeEnroll, slot, func(ctx context.Context) (int, error) {
		return s.enroll(ctx, slot)
	})
}

func (s *Service) enroll(ctx context.Context, requested int) (int, error) {
	capacity, occupied := s.snapshot()
	slot, err := s.opts.SlotPolicy.Select(requested, capacity, occupied)
	if err != nil {
		return requested, &EnrollError{Slot: requested, Stage: StageSelectSlot, Err: err}
	}
	fail := func(stage Stage, err error) (int, error) {
		return slot, &EnrollError{Slot: slot, Stage: stage, Err: err}
	}

	// First impression.
	s.indicator.Signal(ctx, indicator.Enrolling)
	if err := s.waitForFinger(ctx); err != nil {
		return fail(StageCapture1, err)
	}
	if err := s.port.ImageToTemplate(ctx, sensor.BufferOne); err != nil {
		return fail(StageConvert1, err)
	}
	s.indicator.Signal(ctx, indicator.Success)

	if err := s.waitForLift(ctx); err != nil {
		return fail(StageLift, err)
	}

	// Second impression.
	s.indicator.Signal(ctx, indicator.Enrolling)
	if err := s.waitForFinger(ctx); err != nil {
		return fail(StageCapture2, err)
	}
	if err := s.port.ImageToTemplate(ctx, sensor.BufferTwo); err != nil {
		return fail(StageConvert2, err)
	}

	if err := s.port.CreateModel(ctx); err != nil {
		return fail(StageCreateModel, err)
	}
	if err := s.port.StoreModel(ctx, slot); err != nil {
		return fail(StageStore, err)
	}
	if err := s.refresh(ctx); err != nil {
		return fail(StageRefresh, err)
	}

	s.indicator.Signal(ctx, indicator.Success)
	return slot, nil
}

// waitForFinger polls until an image is captured. Only "no finger" keeps
// polling; any other failure ends the wait.
func (s *Service) waitForFinger(ctx context.Context) error {
	deadline := time.Now().Add(s.opts.CaptureTimeout)
	for {
		err := s.port.CaptureImage(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sensor.ErrNoFinger) {
			return err
		}
		if time.Now().After(deadline) {
			return ErrCaptureTimeout
		}
		if err := sleep(ctx, s.opts.PollInterval); err != nil {
			return err
		}
	}
}

// waitForLift polls until the sensor reports no finger.
func (s *Service) waitForLift(ctx context.Context) error {
	deadline := time.Now().Add(s.opts.CaptureTimeout)
	for {
		if err := s.port.CaptureImage(ctx); errors.Is(err, sensor.ErrNoFinger) {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrCaptureTimeout
		}
		if err := sleep(ctx, s.opts.PollInterval); err != nil {
			return err
		}
	}
}
