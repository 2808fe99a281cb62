package repository

import (
	"context"
	"time"

	"prizewheel/internal/domain/model"
)

// CodeFilter narrows List to a prize and/or used-state. Nil fields match all.
type CodeFilter struct {
	PrizeID *string
	IsUsed  *bool
}

// Page is offset-based pagination. Page starts at 1.
type Page struct {
	Page  int
	Limit int
}

// StateCounts groups codes by their current lifecycle state.
type StateCounts struct {
	Active   int
	Redeemed int
	Expired  int
}

// CodeRepository is the port for persisting reward codes.
type CodeRepository interface {
	// Insert persists a new record. Returns domain.ErrDuplicateCode when the
	// code value already exists; concurrent inserts of the same code yield
	// exactly one success.
	Insert(ctx context.Context, tx Tx, rec *model.CodeRecord) error
	// FindByCode looks up a record regardless of its state.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.CodeRecord, error)
	// TryMarkUsed atomically flips an unused, unexpired code to used and
	// returns the updated record. On failure it reports exactly one of
	// domain.ErrCodeNotFound, domain.ErrCodeAlreadyUsed, domain.ErrCodeExpired.
	TryMarkUsed(ctx context.Context, tx Tx, code, usedBy string, now time.Time) (*model.CodeRecord, error)
	// List returns records newest-first plus the total matching the filter.
	List(ctx context.Context, tx Tx, filter CodeFilter, page Page) ([]*model.CodeRecord, int, error)
	// CountByState groups all records into active/redeemed/expired at `now`.
	CountByState(ctx context.Context, tx Tx, now time.Time) (StateCounts, error)
}
