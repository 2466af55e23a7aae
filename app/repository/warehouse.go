package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/entity"
)

// WarehouseRepository reads the warehouse copies of the plan and user
// exports over database/sql.
type WarehouseRepository struct {
	db *sql.DB
}

func NewWarehouseRepository(db *sql.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

// PlanRows is the serving-path row source; warehouse rows always carry
// emails.
func (r *WarehouseRepository) PlanRows(ctx context.Context) ([]entity.RawPlanRow, bool, error) {
	rows, err := r.LoadRawPlanRows(ctx)
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (r *WarehouseRepository) LoadRawPlanRows(ctx context.Context) ([]entity.RawPlanRow, error) {
	query := `SELECT email, title FROM plan_subscriptions`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var result []entity.RawPlanRow
	for rows.Next() {
		var row entity.RawPlanRow
		if err = rows.Scan(&row.Email, &row.Title); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return result, nil
}

func (r *WarehouseRepository) LoadUserRows(ctx context.Context) ([]entity.UserRecord, error) {
	query := `SELECT username, email FROM users`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var result []entity.UserRecord
	for rows.Next() {
		var record entity.UserRecord
		if err = rows.Scan(&record.Username, &record.Email); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		result = append(result, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return result, nil
}

// groupConcatMaxLen bounds the GROUP_CONCAT output per account. MySQL
// defaults group_concat_max_len to 1024 bytes and silently truncates
// beyond it, which would corrupt large plan sets.
const groupConcatMaxLen = 1 << 20

// FindEntriesWithPlans pushes the superset filter down to the warehouse:
// only accounts holding every required title come back, each with its full
// sorted plan set.
func (r *WarehouseRepository) FindEntriesWithPlans(ctx context.Context, required []string) ([]entity.PlanIndexEntry, error) {
	if len(required) == 0 {
		return nil, nil
	}

	// group_concat_max_len is a session variable, so the SET and the
	// query must run on the same connection, not through the pool.
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, fmt.Sprintf("SET SESSION group_concat_max_len = %d", groupConcatMaxLen)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	placeholders := strings.Repeat("?, ", len(required)-1) + "?"
	query := fmt.Sprintf(`
		SELECT email, GROUP_CONCAT(DISTINCT title ORDER BY title SEPARATOR ',') AS all_plans
		FROM plan_subscriptions
		GROUP BY email
		HAVING COUNT(DISTINCT CASE WHEN title IN (%s) THEN title END) = ?
	`, placeholders)

	args := make([]any, 0, len(required)+1)
	for _, title := range required {
		args = append(args, title)
	}
	args = append(args, len(required))

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var entries []entity.PlanIndexEntry
	for rows.Next() {
		var email, allPlans string
		if err = rows.Scan(&email, &allPlans); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		entries = append(entries, entity.PlanIndexEntry{
			Email: email,
			Plans: strings.Split(allPlans, ","),
		})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return entries, nil
}
