package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/metrics"
	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

// rollbackTimeout bounds the compensating delete, which runs even when the
// caller's context is already done.
const rollbackTimeout = 5 * time.Second

// EventInconsistentState tags log lines about reservations whose rollback failed
const EventInconsistentState = "reservation_inconsistent_state"

// ReserveInput describes a reservation request. Blank optional fields are
// treated as absent.
type ReserveInput struct {
	ItemID        string  `json:"item_id"`
	ReserverName  *string `json:"reserver_name"`
	ReserverEmail *string `json:"reserver_email"`
	Message       *string `json:"message"`
}

// ReservationService reserves items so they are not gifted twice.
//
// Reservation row and item status live in separate writes. Reserve inserts
// the row first and flips the status second; when the second write fails
// the row is deleted again so the item stays available.
type ReservationService struct {
	reservations repository.ReservationRepository
	items        repository.ItemRepository
	wishlists    repository.WishlistRepository
	logger       *logrus.Logger
	metrics      *metrics.Metrics
	alerter      Alerter
}

// Reserve claims an item for the actor in ctx
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (*models.Reservation, error) {
	if strings.TrimSpace(in.ItemID) == "" {
		return nil, invalid("item is required")
	}

	created, err := s.reservations.Create(ctx, newReservation(in))
	if err != nil {
		return nil, s.insertError(err)
	}

	status := models.ItemStatusReserved
	if _, err := s.items.Update(ctx, created.ItemID, models.ItemUpdate{Status: &status}); err != nil {
		return nil, s.rollback(ctx, created, err)
	}

	s.metrics.ReservationOutcome(metrics.OutcomeReserved)
	s.logger.WithFields(logrus.Fields{
		"item_id":        created.ItemID,
		"reservation_id": created.ID,
	}).Info("Item reserved")
	return created, nil
}

func newReservation(in ReserveInput) *models.Reservation {
	res := &models.Reservation{
		ItemID:        in.ItemID,
		ReserverName:  models.DefaultReserverName,
		ReserverEmail: optional(in.ReserverEmail),
		Message:       optional(in.Message),
	}
	if name := optional(in.ReserverName); name != nil {
		res.ReserverName = *name
	}
	return res
}

// optional trims v and maps blank values to nil
func optional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *ReservationService) insertError(err error) error {
	switch repository.CodeOf(err) {
	case repository.CodeUniqueViolation:
		s.metrics.ReservationOutcome(metrics.OutcomeAlreadyReserved)
		return &Error{
			Kind:    KindAlreadyReserved,
			Code:    repository.CodeUniqueViolation,
			Message: "item is already reserved",
			Err:     err,
		}
	case repository.CodeInsufficientPrivilege:
		s.metrics.ReservationOutcome(metrics.OutcomeForbidden)
		return &Error{
			Kind:    KindForbidden,
			Code:    repository.CodeInsufficientPrivilege,
			Message: repository.MessageOf(err),
			Err:     err,
		}
	default:
		s.metrics.ReservationOutcome(metrics.OutcomeStoreError)
		return storeError("create reservation", err)
	}
}

// rollback deletes a reservation whose item could not be marked reserved
func (s *ReservationService) rollback(ctx context.Context, res *models.Reservation, cause error) error {
	fields := logrus.Fields{
		"item_id":        res.ItemID,
		"reservation_id": res.ID,
	}

	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	rbErr := s.reservations.Delete(rbCtx, res.ID)
	if rbErr == nil {
		s.metrics.ReservationOutcome(metrics.OutcomeIncomplete)
		s.logger.WithError(cause).WithFields(fields).Warn("Item status update failed, reservation rolled back")
		return &Error{
			Kind:    KindReservationIncomplete,
			Message: "could not complete reservation",
			Err:     cause,
		}
	}

	var merr *multierror.Error
	merr = multierror.Append(merr,
		fmt.Errorf("update item status: %w", cause),
		fmt.Errorf("delete reservation: %w", rbErr),
	)

	s.metrics.ReservationOutcome(metrics.OutcomeInconsistentState)
	s.logger.WithError(merr).WithFields(fields).WithField("event", EventInconsistentState).
		Error("Reservation rollback failed, item needs reconciliation")

	text := fmt.Sprintf("Reservation %s for item %s could not be rolled back: %v", res.ID, res.ItemID, merr)
	if err := s.alerter.Alert(rbCtx, text); err != nil {
		s.logger.WithError(err).WithFields(fields).Warn("Failed to alert operator")
	}

	return &Error{
		Kind:    KindInconsistentState,
		Message: "reservation left in an inconsistent state",
		Err:     merr.ErrorOrNil(),
	}
}

// GetReservationByItem returns the item's reservation, or nil when it has none.
// The reserver's email and message are only returned to the wishlist owner.
func (s *ReservationService) GetReservationByItem(ctx context.Context, itemID string) (*models.Reservation, error) {
	res, err := s.reservations.GetByItem(ctx, itemID)
	if err != nil {
		return nil, storeError("get reservation by item", err)
	}
	if res != nil && !s.ownsItem(ctx, itemID) {
		res.ReserverEmail = nil
		res.Message = nil
	}
	return res, nil
}

// ownsItem reports whether the actor in ctx may see reserver contact
// details of the item. Lookup failures count as no.
func (s *ReservationService) ownsItem(ctx context.Context, itemID string) bool {
	a := actor.FromContext(ctx)
	switch {
	case a.Role == actor.RoleService:
		return true
	case !a.IsAuthenticated():
		return false
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil || item == nil {
		if err != nil {
			s.logger.WithError(err).WithField("item_id", itemID).Warn("Failed to check item owner")
		}
		return false
	}
	w, err := s.wishlists.GetByID(ctx, item.WishlistID)
	if err != nil || w == nil {
		if err != nil {
			s.logger.WithError(err).WithField("wishlist_id", item.WishlistID).Warn("Failed to check wishlist owner")
		}
		return false
	}
	return w.UserID == a.UserID
}

// Cancel deletes a reservation and makes its item available again. If the
// item reset fails the reservation stays deleted and the reconciler
// finishes the reset.
func (s *ReservationService) Cancel(ctx context.Context, reservationID string) error {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return storeError("get reservation", err)
	}
	if res == nil {
		return storeError("cancel reservation", repository.NoRows("failed to delete reservation"))
	}

	if err := s.reservations.Delete(ctx, reservationID); err != nil {
		if repository.CodeOf(err) == repository.CodeInsufficientPrivilege {
			return &Error{
				Kind:    KindForbidden,
				Code:    repository.CodeInsufficientPrivilege,
				Message: repository.MessageOf(err),
				Err:     err,
			}
		}
		return storeError("cancel reservation", err)
	}

	item, err := s.items.GetByID(ctx, res.ItemID)
	if err != nil {
		return s.resetFailed(res, err)
	}
	if item == nil || item.Status != models.ItemStatusReserved {
		return nil
	}
	available := models.ItemStatusAvailable
	if _, err := s.items.Update(ctx, res.ItemID, models.ItemUpdate{Status: &available}); err != nil {
		return s.resetFailed(res, err)
	}
	return nil
}

func (s *ReservationService) resetFailed(res *models.Reservation, err error) error {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"item_id":        res.ItemID,
		"reservation_id": res.ID,
	}).Warn("Reservation cancelled but item status was not reset")
	return storeError("reset item status", err)
}
