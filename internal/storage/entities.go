package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourdesigncoza/get-insider-db/internal/classify"
)

const entityColumns = `normalized_name,
        COALESCE(insider_cik, ''),
        entity_type,
        is_fund_like,
        source,
        confidence,
        COALESCE(rationale, ''),
        created_at,
        updated_at`

const (
	getEntitySQL = `SELECT ` + entityColumns + `
    FROM insider_entities
    WHERE normalized_name = $1;`

	// A conflicting row committed by another session is invisible to this
	// statement's RETURNING, so callers re-read with getEntitySQL.
	insertEntityIfAbsentSQL = `INSERT INTO insider_entities (
        normalized_name,
        insider_cik,
        entity_type,
        is_fund_like,
        source,
        confidence,
        rationale
    ) VALUES (
        $1, NULLIF($2, ''), $3, $4, $5, $6, $7
    )
    ON CONFLICT (normalized_name) DO NOTHING
    RETURNING ` + entityColumns + `;`

	upsertEntitySQL = `INSERT INTO insider_entities (
        normalized_name,
        insider_cik,
        entity_type,
        is_fund_like,
        source,
        confidence,
        rationale
    ) VALUES (
        $1, NULLIF($2, ''), $3, $4, $5, $6, $7
    )
    ON CONFLICT (normalized_name) DO UPDATE
    SET
        insider_cik  = COALESCE(EXCLUDED.insider_cik, insider_entities.insider_cik),
        entity_type  = EXCLUDED.entity_type,
        is_fund_like = EXCLUDED.is_fund_like,
        source       = EXCLUDED.source,
        confidence   = EXCLUDED.confidence,
        rationale    = EXCLUDED.rationale,
        updated_at   = NOW()
    RETURNING ` + entityColumns + `;`

	deleteEntitySQL = `DELETE FROM insider_entities WHERE normalized_name = $1;`
)

// GetClassification loads the cached classification for a party key.
func (s *Store) GetClassification(ctx context.Context, key string) (classify.Classification, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return classify.Classification{}, false, err
	}
	c, scanErr := scanClassification(pool.QueryRow(ctx, getEntitySQL, key))
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return classify.Classification{}, false, nil
		}
		return classify.Classification{}, false, fmt.Errorf("get classification: %w", scanErr)
	}
	return c, true, nil
}

// InsertClassificationIfAbsent stores c unless a row for c.PartyKey exists and
// returns the row that is stored afterwards.
func (s *Store) InsertClassificationIfAbsent(ctx context.Context, c classify.Classification) (classify.Classification, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return classify.Classification{}, false, err
	}

	stored, scanErr := scanClassification(pool.QueryRow(ctx, insertEntityIfAbsentSQL, entityArgs(c)...))
	if scanErr == nil {
		return stored, true, nil
	}
	if !errors.Is(scanErr, pgx.ErrNoRows) {
		return classify.Classification{}, false, fmt.Errorf("insert classification: %w", scanErr)
	}

	existing, found, getErr := s.GetClassification(ctx, c.PartyKey)
	if getErr != nil {
		return classify.Classification{}, false, getErr
	}
	if !found {
		return classify.Classification{}, false, fmt.Errorf("insert classification: conflicting row for %q vanished", c.PartyKey)
	}
	return existing, false, nil
}

// PutClassification replaces any stored classification for c.PartyKey.
func (s *Store) PutClassification(ctx context.Context, c classify.Classification) (classify.Classification, error) {
	pool, err := s.getPool()
	if err != nil {
		return classify.Classification{}, err
	}
	stored, scanErr := scanClassification(pool.QueryRow(ctx, upsertEntitySQL, entityArgs(c)...))
	if scanErr != nil {
		return classify.Classification{}, fmt.Errorf("put classification: %w", scanErr)
	}
	return stored, nil
}

// DeleteClassification removes the cached row so the party is classified afresh.
func (s *Store) DeleteClassification(ctx context.Context, key string) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	tag, execErr := pool.Exec(ctx, deleteEntitySQL, key)
	if execErr != nil {
		return false, fmt.Errorf("delete classification: %w", execErr)
	}
	return tag.RowsAffected() > 0, nil
}

func entityArgs(c classify.Classification) []interface{} {
	return []interface{}{
		c.PartyKey,
		c.PartyCIK,
		string(c.EntityType),
		c.IsFundLike,
		string(c.Source),
		c.Confidence,
		c.Rationale,
	}
}

func scanClassification(row pgx.Row) (classify.Classification, error) {
	var (
		c          classify.Classification
		entityType string
		source     string
	)
	if err := row.Scan(
		&c.PartyKey,
		&c.PartyCIK,
		&entityType,
		&c.IsFundLike,
		&source,
		&c.Confidence,
		&c.Rationale,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return classify.Classification{}, err
	}
	c.EntityType = classify.EntityType(entityType)
	c.Source = classify.Source(source)
	return c, nil
}
