package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/models"
)

// Repair kinds reported by the reconciler
const (
	RepairOrphanedReservation = "orphaned_reservation"
	RepairStaleItemStatus     = "stale_item_status"
)

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	OrphanedReservations int
	StaleItems           int
	Failures             int
}

// Repaired returns how many rows the pass fixed
func (r ReconcileReport) Repaired() int {
	return r.OrphanedReservations + r.StaleItems
}

// StartReconciler runs a reconciliation pass every interval until ctx is
// cancelled. It blocks, so it should be launched in a separate goroutine.
func (s *Service) StartReconciler(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Infof("Reconciler started (interval=%s, grace=%s)", interval, grace)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciler stopped")
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx, grace); err != nil {
				s.logger.WithError(err).Error("Reconciliation pass failed")
			}
		}
	}
}

// Reconcile brings reservation rows and item statuses back in line. It runs
// as the service actor.
//
// Reservations older than grace whose item is still available are leftovers
// of a failed rollback and are deleted; the reserver was already told the
// reservation failed. Items marked reserved without a reservation row are
// made available again.
func (s *Service) Reconcile(ctx context.Context, grace time.Duration) (ReconcileReport, error) {
	ctx = actor.WithActor(ctx, actor.Service())
	var report ReconcileReport

	orphans, err := s.reservations.ListOrphaned(ctx, s.now().Add(-grace))
	if err != nil {
		return report, storeError("list orphaned reservations", err)
	}
	for _, res := range orphans {
		if err := s.reservations.Delete(ctx, res.ID); err != nil {
			report.Failures++
			s.logger.WithError(err).WithField("reservation_id", res.ID).Error("Failed to delete orphaned reservation")
			continue
		}
		report.OrphanedReservations++
		s.logger.WithFields(logrus.Fields{
			"reservation_id": res.ID,
			"item_id":        res.ItemID,
		}).Warn("Deleted orphaned reservation")
	}

	stale, err := s.items.ListReservedWithoutReservation(ctx)
	if err != nil {
		return report, storeError("list stale items", err)
	}
	available := models.ItemStatusAvailable
	for _, item := range stale {
		if _, err := s.items.Update(ctx, item.ID, models.ItemUpdate{Status: &available}); err != nil {
			report.Failures++
			s.logger.WithError(err).WithField("item_id", item.ID).Error("Failed to reset item status")
			continue
		}
		report.StaleItems++
		s.logger.WithField("item_id", item.ID).Warn("Reset reserved item without reservation")
	}

	s.metrics.Reconciled(RepairOrphanedReservation, report.OrphanedReservations)
	s.metrics.Reconciled(RepairStaleItemStatus, report.StaleItems)

	if report.Repaired() > 0 || report.Failures > 0 {
		text := fmt.Sprintf("Reconciler: deleted %d orphaned reservations, reset %d items, %d failures",
			report.OrphanedReservations, report.StaleItems, report.Failures)
		if err := s.alerter.Alert(ctx, text); err != nil {
			s.logger.WithError(err).Warn("Failed to alert operator")
		}
	}
	return report, nil
}
