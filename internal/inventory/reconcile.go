package inventory

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/queue"
	"github.com/iliyamo/car-rental-booking/internal/repository"
)

// Correction records one rewritten available count.
type Correction struct {
	CarID uint64 `json:"carId"`
	From  int    `json:"from"`
	To    int    `json:"to"`
}

// Report summarizes a reconciliation pass.
type Report struct {
	Checked     int          `json:"checked"`
	Corrected   int          `json:"corrected"`
	Failed      int          `json:"failed"`
	Corrections []Correction `json:"corrections"`
}

// Reconcile fetches every car and booking and rewrites the available count
// of each car whose stored value differs from quantity minus its active
// bookings.  Writes are issued one per discrepant car.  A failed write is
// recorded and the pass carries on; all per-car failures are returned
// joined.
func (s *Service) Reconcile(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "inventory.Reconcile")
	defer span.End()

	rep := Report{Corrections: []Correction{}}
	cars, err := s.cars.List(ctx, repository.CarFilter{})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return rep, fmt.Errorf("list cars: %w", err)
	}
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return rep, fmt.Errorf("list bookings: %w", err)
	}
	active := ActiveCounts(bookings)

	var errs []error
	for _, c := range cars {
		rep.Checked++
		want := ExpectedAvailable(c.Quantity, active[c.ID])
		if c.Available == want {
			continue
		}
		if err := s.cars.UpdateAvailable(ctx, c.ID, want); err != nil {
			rep.Failed++
			errs = append(errs, fmt.Errorf("car %d: %w", c.ID, err))
			s.log.Warn("reconcile: update failed", zap.Uint64("car_id", c.ID), zap.Error(err))
			continue
		}
		rep.Corrected++
		rep.Corrections = append(rep.Corrections, Correction{CarID: c.ID, From: c.Available, To: want})
		s.log.Info("reconcile: corrected availability",
			zap.Uint64("car_id", c.ID), zap.Int("from", c.Available), zap.Int("to", want))
	}

	span.SetAttributes(
		attribute.Int("inventory.checked", rep.Checked),
		attribute.Int("inventory.corrected", rep.Corrected),
		attribute.Int("inventory.failed", rep.Failed),
	)
	if rep.Corrected > 0 || rep.Failed > 0 {
		s.events.Emit(queue.TypeInventoryReconciled, queue.InventoryReconciled{
			Checked: rep.Checked, Corrected: rep.Corrected, Failed: rep.Failed,
		})
	}
	err = errors.Join(errs...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return rep, err
}
