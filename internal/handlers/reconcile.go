package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/service"
)

// Reconciler runs one reconciliation pass
type Reconciler interface {
	Reconcile(ctx context.Context, grace time.Duration) (service.ReconcileReport, error)
}

// ReconcileHandler handles the /reconcile command
type ReconcileHandler struct {
	svc    Reconciler
	grace  time.Duration
	logger *logrus.Logger
}

// NewReconcileHandler creates a handler that repairs drift older than grace
func NewReconcileHandler(svc Reconciler, grace time.Duration, logger *logrus.Logger) *ReconcileHandler {
	return &ReconcileHandler{svc: svc, grace: grace, logger: logger}
}

// Handle processes the /reconcile command
func (h *ReconcileHandler) Handle(ctx context.Context, _ []string) (string, error) {
	report, err := h.svc.Reconcile(ctx, h.grace)
	if err != nil {
		return "", fmt.Errorf("reconcile: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"orphaned_reservations": report.OrphanedReservations,
		"stale_items":           report.StaleItems,
		"failures":              report.Failures,
	}).Info("Manual reconciliation finished")

	if report.Repaired() == 0 && report.Failures == 0 {
		return "✅ Nothing to repair.", nil
	}
	return fmt.Sprintf("🔧 Reconciliation finished\n"+
		"• orphaned reservations deleted: %d\n"+
		"• stale items reset: %d\n"+
		"• failed repairs: %d",
		report.OrphanedReservations, report.StaleItems, report.Failures), nil
}
