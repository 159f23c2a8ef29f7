package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/repository"
)

// querier runs each repository call as the actor found in the context.
//
// Anonymous and authenticated actors get a short transaction that switches
// to the matching database role and exposes the user id to row-level
// policies through request.jwt.claim.sub. The service actor runs on the
// pool directly and is subject to no policy.
type querier struct {
	db *sqlx.DB
}

const setActorQuery = `SELECT set_config('request.jwt.claim.sub', $1, true), set_config('role', $2, true)`

func (q querier) run(ctx context.Context, fn func(sqlx.ExtContext) error) (err error) {
	a := actor.FromContext(ctx)
	if a.Role == actor.RoleService {
		return fn(q.db)
	}

	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, setActorQuery, a.UserID, string(a.Role)); err != nil {
		return fmt.Errorf("failed to set request actor: %w", err)
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// translate converts a driver error into a repository.StoreError keeping the
// PostgreSQL error code.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &repository.StoreError{
			Op:      op,
			Code:    string(pqErr.Code),
			Message: pqErr.Message,
			Err:     err,
		}
	}
	return &repository.StoreError{Op: op, Message: err.Error(), Err: err}
}

// updateBuilder collects SET assignments for partial updates
type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) set(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

// where appends the key argument and returns its placeholder
func (b *updateBuilder) where(value any) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}
