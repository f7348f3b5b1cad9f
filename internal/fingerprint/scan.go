package fingerprint

import (
	"context"
	"errors"

	"github.com/nerrad567/gray-logic-fingerprint/internal/indicator"
	"github.com/nerrad567/gray-logic-fingerprint/internal/sensor"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

// scanLoop runs while the service is started. It parks whenever an admin
// mode holds the sensor and resumes when released.
func (s *Service) scanLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		if s.Mode() != ModeScan {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}

		s.scanOnce(ctx)

		if err := sleep(ctx, s.opts.ScanInterval); err != nil {
			return
		}
	}
}

// scanOnce performs one capture/search cycle.
func (s *Service) scanOnce(ctx context.Context) {
	s.portMu.Lock()
	defer s.portMu.Unlock()

	// An admin operation may have claimed the mode while we waited.
	if s.Mode() != ModeScan {
		return
	}

	if err := s.port.CaptureImage(ctx); err != nil {
		if !errors.Is(err, sensor.ErrNoFinger) && ctx.Err() == nil {
			s.logger.Debug("scan capture failed", "error", err)
		}
		return
	}
	s.indicator.Signal(ctx, indicator.Scanning)

	if err := s.port.ImageToTemplate(ctx, sensor.BufferOne); err != nil {
		s.reject(ctx, err)
		return
	}
	match, err := s.port.Search(ctx)
	if err != nil {
		s.reject(ctx, err)
		return
	}

	rec, err := s.registry.RecordMatch(ctx, match.Slot, s.opts.Now(), s.opts.MatchTimeout)
	if err != nil {
		s.logger.Error("persisting match", "slot", match.Slot, "error", err)
	}

	ev := ScanEvent{
		Slot:       rec.ID,
		Label:      rec.Label,
		Action:     rec.Action,
		Time:       rec.LastSeen(),
		Count:      rec.Count,
		Confidence: match.Confidence,
	}
	s.logger.Info("finger matched", "slot", ev.Slot, "label", ev.Label,
		"action", string(ev.Action), "confidence", ev.Confidence)
	s.sink.ScanMatched(ev)

	if ev.Action == template.ActionTimeout {
		s.indicator.Signal(ctx, indicator.Error)
	} else {
		s.indicator.Signal(ctx, indicator.Success)
	}
}

func (s *Service) reject(ctx context.Context, reason error) {
	if ctx.Err() != nil {
		return
	}
	ev := unauthorizedEvent(s.opts.Now(), reason)
	s.logger.Info("finger rejected", "class", string(sensor.Classify(reason)), "error", reason)
	s.sink.ScanRejected(ev)
	s.indicator.Signal(ctx, indicator.Error)
}
