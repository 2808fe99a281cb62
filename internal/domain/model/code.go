package model

import (
	"time"
)

// CodeRecord represents a single-use reward code issued for a prize.
type CodeRecord struct {
	ID        string
	Code      string
	PrizeID   string
	IsUsed    bool
	UsedBy    *string    // Pointer to allow for NULL
	UsedAt    *time.Time // Pointer to allow for NULL
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewCodeRecord builds an unused record whose expiry is fixed at issuance.
func NewCodeRecord(code, prizeID string, now time.Time, window time.Duration) *CodeRecord {
	return &CodeRecord{
		Code:      code,
		PrizeID:   prizeID,
		IsUsed:    false,
		CreatedAt: now,
		ExpiresAt: now.Add(window),
	}
}

// Expired reports whether the record's validity window has passed.
func (r *CodeRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Valid reports whether the code can still be redeemed: never used and
// inside its validity window. The store re-checks the same condition
// atomically when marking a code used; this form serves read-only paths.
func (r *CodeRecord) Valid(now time.Time) bool {
	return !r.IsUsed && !r.Expired(now)
}
