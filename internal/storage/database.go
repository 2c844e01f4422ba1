package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/lyric-warden/internal/core"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Postgres-backed Store.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) UpsertDraft(ctx context.Context, draft *core.ReportDraft) error {
	if draft.ID == 0 {
		query := `INSERT INTO report_drafts (pr_number, pr_title, report, updated_at)
			VALUES ($1, $2, $3, $4) RETURNING id`
		return s.db.QueryRowContext(ctx, query,
			draft.PRNumber, draft.PRTitle, draft.Report, time.Now()).Scan(&draft.ID)
	}
	query := `UPDATE report_drafts SET pr_number = $1, pr_title = $2, report = $3, updated_at = $4 WHERE id = $5`
	_, err := s.db.ExecContext(ctx, query,
		draft.PRNumber, draft.PRTitle, draft.Report, time.Now(), draft.ID)
	return err
}

func (s *postgresStore) FindDraft(ctx context.Context, prNumber int, prTitle string) (*core.ReportDraft, error) {
	query := `
		SELECT id, pr_number, pr_title, report, updated_at
		FROM report_drafts
		WHERE pr_number = $1
		ORDER BY updated_at DESC
		LIMIT 1`
	args := []any{prNumber}
	if prNumber == 0 {
		query = `
			SELECT id, pr_number, pr_title, report, updated_at
			FROM report_drafts
			WHERE pr_number = 0 AND pr_title = $1
			ORDER BY updated_at DESC
			LIMIT 1`
		args = []any{prTitle}
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	var d core.ReportDraft
	err := row.Scan(&d.ID, &d.PRNumber, &d.PRTitle, &d.Report, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find draft for PR #%d: %w", prNumber, err)
	}
	return &d, nil
}

func (s *postgresStore) ListDrafts(ctx context.Context) ([]core.ReportDraft, error) {
	query := `SELECT id, pr_number, pr_title, report, updated_at FROM report_drafts ORDER BY updated_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var drafts []core.ReportDraft
	for rows.Next() {
		var d core.ReportDraft
		if err := rows.Scan(&d.ID, &d.PRNumber, &d.PRTitle, &d.Report, &d.UpdatedAt); err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (s *postgresStore) DeleteDraft(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM report_drafts WHERE id = $1`, id)
	return err
}

func (s *postgresStore) GetStashState(ctx context.Context, key core.SessionKey) (*core.StashState, error) {
	query := `SELECT state FROM stash_states WHERE pr_number = $1 AND file_name = $2`
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, key.PRNumber, key.FileName).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load stash state for %s: %w", key.String(), err)
	}
	var state core.StashState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode stash state for %s: %w", key.String(), err)
	}
	return &state, nil
}

func (s *postgresStore) PutStashState(ctx context.Context, key core.SessionKey, state *core.StashState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode stash state: %w", err)
	}
	query := `
		INSERT INTO stash_states (pr_number, file_name, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pr_number, file_name)
		DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
	_, err = s.db.ExecContext(ctx, query, key.PRNumber, key.FileName, raw, time.Now())
	return err
}
