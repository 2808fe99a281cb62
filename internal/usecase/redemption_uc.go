package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"prizewheel/internal/domain"
	"prizewheel/internal/domain/model"
	"prizewheel/internal/domain/ports/repository"
	"prizewheel/internal/infra/metrics"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ValidationResult is the read-only answer for public code checks.
// It deliberately carries no record fields; redeemer identity and prize
// assignment stay behind the authorized endpoints.
type ValidationResult struct {
	Exists  bool
	IsValid bool
}

// ListResult is a single page of codes plus filtered totals.
type ListResult struct {
	Records    []*model.CodeRecord
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// RedemptionUseCase implements issuance and redemption of reward codes.
// The repository is the only shared mutable state; records read here are
// treated as immutable snapshots.
type RedemptionUseCase struct {
	codes      repository.CodeRepository
	txm        repository.TransactionManager
	generate   CodeGenerator
	now        func() time.Time
	window     time.Duration
	maxRetries int
	log        *zerolog.Logger
}

func NewRedemptionUseCase(
	codes repository.CodeRepository,
	txm repository.TransactionManager,
	generate CodeGenerator,
	window time.Duration,
	maxRetries int,
	logger *zerolog.Logger,
) *RedemptionUseCase {
	if generate == nil {
		generate = RandomCode
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	ucLog := logger.With().Str("component", "RedemptionUC").Logger()
	return &RedemptionUseCase{
		codes:      codes,
		txm:        txm,
		generate:   generate,
		now:        time.Now,
		window:     window,
		maxRetries: maxRetries,
		log:        &ucLog,
	}
}

// Generate issues one new code for a prize. Generator collisions are retried
// with a fresh token up to the configured ceiling; exhausting it is a server
// fault (domain.ErrGenerationFailed), everything else surfaces as-is.
func (uc *RedemptionUseCase) Generate(ctx context.Context, prizeID string) (*model.CodeRecord, error) {
	rec, err := uc.generateOne(ctx, nil, prizeID)
	if err != nil {
		return nil, err
	}
	metrics.IncCodesGenerated()
	return rec, nil
}

func (uc *RedemptionUseCase) generateOne(ctx context.Context, tx repository.Tx, prizeID string) (*model.CodeRecord, error) {
	if prizeID == "" {
		return nil, domain.ErrInvalidArgument
	}

	for attempt := 0; attempt < uc.maxRetries; attempt++ {
		code, err := uc.generate()
		if err != nil {
			return nil, err
		}
		rec := model.NewCodeRecord(code, prizeID, uc.now(), uc.window)
		err = uc.codes.Insert(ctx, tx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrDuplicateCode) {
			return nil, err
		}
		// Collision; also reachable when a timed-out insert actually landed.
		metrics.IncGenerateCollision()
		uc.log.Warn().Int("attempt", attempt+1).Str("prize_id", prizeID).Msg("code collision, regenerating")
	}
	return nil, domain.ErrGenerationFailed
}

// GenerateBatch issues n codes for a prize inside a single transaction, so a
// campaign seed is all-or-nothing.
func (uc *RedemptionUseCase) GenerateBatch(ctx context.Context, prizeID string, n int) ([]*model.CodeRecord, error) {
	if n <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if uc.txm == nil {
		return nil, domain.ErrInvalidExecContext
	}

	records := make([]*model.CodeRecord, 0, n)
	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for i := 0; i < n; i++ {
			rec, err := uc.generateOne(ctx, tx, prizeID)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.AddCodesGenerated(len(records))
	return records, nil
}

// Validate answers a public "can this still be spun in" check without
// mutating anything. An unknown code is a regular outcome, not an error.
func (uc *RedemptionUseCase) Validate(ctx context.Context, code string) (ValidationResult, error) {
	rec, err := uc.codes.FindByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return ValidationResult{Exists: false, IsValid: false}, nil
		}
		return ValidationResult{}, err
	}
	return ValidationResult{Exists: true, IsValid: rec.Valid(uc.now())}, nil
}

// Redeem consumes a code on behalf of a user. The repository's conditional
// update decides the winner when attempts race; this layer never
// read-then-writes the used flag.
func (uc *RedemptionUseCase) Redeem(ctx context.Context, code, userID string) (*model.CodeRecord, error) {
	if code == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	rec, err := uc.codes.TryMarkUsed(ctx, nil, code, userID, uc.now())
	if err != nil {
		metrics.IncRedemption(redeemOutcome(err))
		return nil, err
	}
	metrics.IncRedemption("success")
	uc.log.Info().Str("code", rec.Code).Str("prize_id", rec.PrizeID).Msg("code redeemed")
	return rec, nil
}

func redeemOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		return "already_used"
	case errors.Is(err, domain.ErrCodeExpired):
		return "expired"
	default:
		return "error"
	}
}

// GetDetails returns the full record, including redeemer fields. The API
// boundary gates this behind authorization.
func (uc *RedemptionUseCase) GetDetails(ctx context.Context, code string) (*model.CodeRecord, error) {
	return uc.codes.FindByCode(ctx, nil, code)
}

// List returns a page of codes. Pagination parameters are clamped rather
// than rejected: page >= 1, limit in [1, 100].
func (uc *RedemptionUseCase) List(ctx context.Context, filter repository.CodeFilter, page, limit int) (ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	records, total, err := uc.codes.List(ctx, nil, filter, repository.Page{Page: page, Limit: limit})
	if err != nil {
		return ListResult{}, err
	}
	totalPages := (total + limit - 1) / limit
	return ListResult{
		Records:    records,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Stats groups every code into active/redeemed/expired as of now.
func (uc *RedemptionUseCase) Stats(ctx context.Context) (repository.StateCounts, error) {
	return uc.codes.CountByState(ctx, nil, uc.now())
}
