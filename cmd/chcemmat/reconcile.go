package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.buildService(cmd.Context()); err != nil {
		return err
	}

	report, err := a.svc.Reconcile(cmd.Context(), a.cfg.ReconcileGrace)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"orphaned_reservations": report.OrphanedReservations,
		"stale_items":           report.StaleItems,
		"failures":              report.Failures,
	}).Info("Reconciliation pass finished")

	if report.Failures > 0 {
		return fmt.Errorf("%d repairs failed", report.Failures)
	}
	return nil
}
