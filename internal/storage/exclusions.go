package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/yourdesigncoza/get-insider-db/internal/exclusion"
)

const (
	listExclusionsSQL = `SELECT id, pattern, COALESCE(reason, ''), active, created_at
    FROM insider_exclusions
    WHERE ($1::boolean IS FALSE OR active)
    ORDER BY id;`

	insertExclusionSQL = `INSERT INTO insider_exclusions (pattern, reason, active)
    VALUES ($1, $2, TRUE)
    RETURNING id, pattern, COALESCE(reason, ''), active, created_at;`

	setExclusionActiveSQL = `UPDATE insider_exclusions SET active = $2 WHERE id = $1;`
)

// ListExclusions returns exclusion rules ordered by id.
func (s *Store) ListExclusions(ctx context.Context, activeOnly bool) ([]exclusion.Rule, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listExclusionsSQL, activeOnly)
	if queryErr != nil {
		return nil, fmt.Errorf("list exclusions: %w", queryErr)
	}
	defer rows.Close()

	rules := make([]exclusion.Rule, 0)
	for rows.Next() {
		var r exclusion.Rule
		if scanErr := rows.Scan(&r.ID, &r.Pattern, &r.Reason, &r.Active, &r.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("scan exclusion: %w", scanErr)
		}
		rules = append(rules, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

// AddExclusion stores a new active rule.
func (s *Store) AddExclusion(ctx context.Context, pattern, reason string) (exclusion.Rule, error) {
	pool, err := s.getPool()
	if err != nil {
		return exclusion.Rule{}, err
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return exclusion.Rule{}, fmt.Errorf("exclusion pattern is required")
	}

	var r exclusion.Rule
	if scanErr := pool.QueryRow(ctx, insertExclusionSQL, pattern, reason).
		Scan(&r.ID, &r.Pattern, &r.Reason, &r.Active, &r.CreatedAt); scanErr != nil {
		return exclusion.Rule{}, fmt.Errorf("insert exclusion: %w", scanErr)
	}
	return r, nil
}

// SetExclusionActive toggles a rule. It returns pgx.ErrNoRows for an unknown id.
func (s *Store) SetExclusionActive(ctx context.Context, id int64, active bool) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	tag, execErr := pool.Exec(ctx, setExclusionActiveSQL, id, active)
	if execErr != nil {
		return fmt.Errorf("set exclusion active: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
