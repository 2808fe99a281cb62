package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"prizewheel/internal/domain"
	"prizewheel/internal/domain/model"
	"prizewheel/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.CodeRepository = (*codeRepo)(nil)

type codeRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRepo(pool *pgxpool.Pool) repository.CodeRepository {
	return &codeRepo{pool: pool}
}

const codeColumns = "id, code, prize_id, is_used, used_by, used_at, created_at, expires_at"

func scanCode(row pgx.Row) (*model.CodeRecord, error) {
	var rec model.CodeRecord
	err := row.Scan(
		&rec.ID, &rec.Code, &rec.PrizeID, &rec.IsUsed, &rec.UsedBy, &rec.UsedAt, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert persists a new record. The unique index on `code` is the uniqueness
// guarantee; a violation maps to domain.ErrDuplicateCode.
func (r *codeRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.CodeRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	const q = `
INSERT INTO reward_codes (id, code, prize_id, is_used, used_by, used_at, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.Code, rec.PrizeID, rec.IsUsed, rec.UsedBy, rec.UsedAt, rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

func (r *codeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.CodeRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM reward_codes WHERE code = $1;`, codeColumns)
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}

	rec, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rec, nil
}

// TryMarkUsed is the linearization point for redemption. The conditional
// UPDATE evaluates and applies the precondition as one atomic unit; when it
// matches no row, a follow-up read only classifies the failure.
func (r *codeRepo) TryMarkUsed(ctx context.Context, tx repository.Tx, code, usedBy string, now time.Time) (*model.CodeRecord, error) {
	q := fmt.Sprintf(`
UPDATE reward_codes
   SET is_used = TRUE, used_by = $2, used_at = $3
 WHERE code = $1 AND is_used = FALSE AND expires_at >= $3
RETURNING %s;
`, codeColumns)
	row, err := pickRow(ctx, r.pool, tx, q, code, usedBy, now)
	if err != nil {
		return nil, err
	}

	rec, err := scanCode(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReadDatabaseRow
	}

	// The update matched nothing. Distinguish why; expiry wins over the
	// used flag so a long-dead code always reads as expired.
	// The classifying read runs after the update, so a code inserted in
	// between (a redeem racing the generate that creates it) can be
	// reported as already-used while actually unused. Accepted: the code
	// is never consumed and at-most-once is unaffected.
	cur, err := r.FindByCode(ctx, tx, code)
	if err != nil {
		return nil, err // ErrCodeNotFound or an infra failure
	}
	if cur.Expired(now) {
		return nil, domain.ErrCodeExpired
	}
	return nil, domain.ErrCodeAlreadyUsed
}

func (r *codeRepo) List(ctx context.Context, tx repository.Tx, filter repository.CodeFilter, page repository.Page) ([]*model.CodeRecord, int, error) {
	where := ""
	args := []interface{}{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	and := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}
	if filter.PrizeID != nil {
		and("prize_id = " + next(*filter.PrizeID))
	}
	if filter.IsUsed != nil {
		and("is_used = " + next(*filter.IsUsed))
	}

	var total int
	countRow, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM reward_codes`+where+`;`, args...)
	if err != nil {
		return nil, 0, err
	}
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	offset := (page.Page - 1) * page.Limit
	q := fmt.Sprintf(`SELECT %s FROM reward_codes%s ORDER BY created_at DESC LIMIT %s OFFSET %s;`,
		codeColumns, where, next(page.Limit), next(offset))
	rows, err := pickRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*model.CodeRecord
	for rows.Next() {
		rec, err := scanCode(rows)
		if err != nil {
			return nil, 0, domain.ErrReadDatabaseRow
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *codeRepo) CountByState(ctx context.Context, tx repository.Tx, now time.Time) (repository.StateCounts, error) {
	const q = `
SELECT
  COUNT(*) FILTER (WHERE NOT is_used AND expires_at >= $1),
  COUNT(*) FILTER (WHERE is_used),
  COUNT(*) FILTER (WHERE NOT is_used AND expires_at < $1)
  FROM reward_codes;
`
	var counts repository.StateCounts
	row, err := pickRow(ctx, r.pool, tx, q, now)
	if err != nil {
		return counts, err
	}
	if err := row.Scan(&counts.Active, &counts.Redeemed, &counts.Expired); err != nil {
		return counts, domain.ErrReadDatabaseRow
	}
	return counts, nil
}
