package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

// publicReservationColumns are readable by every role. The reserver's
// email and message are only exposed to the wishlist owner, through
// app.reservation_contact.
const publicReservationColumns = `id, item_id, reserver_name, created_at`

// reservationSelect returns the SELECT head for reading reservations as a.
func reservationSelect(a actor.Actor) string {
	switch a.Role {
	case actor.RoleService:
		return `SELECT r.id, r.item_id, r.reserver_name, r.reserver_email, r.message, r.created_at
		FROM reservations r`
	case actor.RoleAuthenticated:
		return `SELECT r.id, r.item_id, r.reserver_name, c.reserver_email, c.message, r.created_at
		FROM reservations r
		LEFT JOIN LATERAL app.reservation_contact(r.id) c ON true`
	default:
		return `SELECT r.id, r.item_id, r.reserver_name, NULL::text AS reserver_email, NULL::text AS message, r.created_at
		FROM reservations r`
	}
}

type reservationRepository struct {
	querier
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *sqlx.DB) repository.ReservationRepository {
	return &reservationRepository{querier{db: db}}
}

func (r *reservationRepository) Create(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error) {
	query := `
		INSERT INTO reservations (item_id, reserver_name, reserver_email, message)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + publicReservationColumns

	created := &models.Reservation{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, created, query,
			reservation.ItemID,
			reservation.ReserverName,
			reservation.ReserverEmail,
			reservation.Message,
		)
	})
	if err != nil {
		return nil, translate("failed to create reservation", err)
	}
	created.ReserverEmail = reservation.ReserverEmail
	created.Message = reservation.Message

	return created, nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	return r.getOne(ctx, "failed to get reservation by ID",
		reservationSelect(actor.FromContext(ctx))+` WHERE r.id = $1`, id)
}

func (r *reservationRepository) GetByItem(ctx context.Context, itemID string) (*models.Reservation, error) {
	return r.getOne(ctx, "failed to get reservation by item",
		reservationSelect(actor.FromContext(ctx))+` WHERE r.item_id = $1`, itemID)
}

func (r *reservationRepository) getOne(ctx context.Context, op, query string, arg any) (*models.Reservation, error) {
	reservation := &models.Reservation{}
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.GetContext(ctx, q, reservation, query, arg)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(op, err)
	}

	return reservation, nil
}

func (r *reservationRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.querier, "reservations", "failed to delete reservation", id)
}

func (r *reservationRepository) ListOrphaned(ctx context.Context, cutoff time.Time) ([]*models.Reservation, error) {
	query := `
		SELECT r.id, r.item_id, r.reserver_name, r.reserver_email, r.message, r.created_at
		FROM reservations r
		JOIN items i ON i.id = r.item_id
		WHERE i.status = 'available' AND r.created_at < $1
		ORDER BY r.created_at`

	var reservations []*models.Reservation
	err := r.run(ctx, func(q sqlx.ExtContext) error {
		return sqlx.SelectContext(ctx, q, &reservations, query, cutoff)
	})
	if err != nil {
		return nil, translate("failed to query orphaned reservations", err)
	}

	return reservations, nil
}
