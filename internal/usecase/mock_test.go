package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"prizewheel/internal/domain"
	"prizewheel/internal/domain/model"
	"prizewheel/internal/domain/ports/repository"
)

// memCodeRepo is a mutex-guarded in-memory CodeRepository with the same
// atomicity contract as the Postgres implementation: Insert and TryMarkUsed
// decide winners under the lock.
type memCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.CodeRecord

	// optional error hooks to exercise failure mapping paths
	errInsert error
	errFind   error
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{codes: map[string]*model.CodeRecord{}}
}

var _ repository.CodeRepository = (*memCodeRepo)(nil)

func (m *memCodeRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.CodeRecord) error {
	if m.errInsert != nil {
		return m.errInsert
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[rec.Code]; ok {
		return domain.ErrDuplicateCode
	}
	if rec.ID == "" {
		rec.ID = rec.Code // stable stand-in for a generated uuid
	}
	cp := *rec
	m.codes[rec.Code] = &cp
	return nil
}

func (m *memCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.CodeRecord, error) {
	if m.errFind != nil {
		return nil, m.errFind
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memCodeRepo) TryMarkUsed(ctx context.Context, tx repository.Tx, code, usedBy string, now time.Time) (*model.CodeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	if now.After(rec.ExpiresAt) {
		return nil, domain.ErrCodeExpired
	}
	if rec.IsUsed {
		return nil, domain.ErrCodeAlreadyUsed
	}
	rec.IsUsed = true
	rec.UsedBy = &usedBy
	rec.UsedAt = &now
	cp := *rec
	return &cp, nil
}

func (m *memCodeRepo) List(ctx context.Context, tx repository.Tx, filter repository.CodeFilter, page repository.Page) ([]*model.CodeRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*model.CodeRecord
	for _, rec := range m.codes {
		if filter.PrizeID != nil && rec.PrizeID != *filter.PrizeID {
			continue
		}
		if filter.IsUsed != nil && rec.IsUsed != *filter.IsUsed {
			continue
		}
		cp := *rec
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page.Page - 1) * page.Limit
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *memCodeRepo) CountByState(ctx context.Context, tx repository.Tx, now time.Time) (repository.StateCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts repository.StateCounts
	for _, rec := range m.codes {
		switch {
		case rec.IsUsed:
			counts.Redeemed++
		case now.After(rec.ExpiresAt):
			counts.Expired++
		default:
			counts.Active++
		}
	}
	return counts, nil
}

// memTxManager runs the callback without a real transaction; the mem repo
// ignores the tx handle anyway.
type memTxManager struct{}

var _ repository.TransactionManager = (*memTxManager)(nil)

func (memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
