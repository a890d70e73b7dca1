package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"startup-radar/internal/domain/entity"
	"startup-radar/internal/repository"
)

type StartupRepo struct{ db *sql.DB }

func NewStartupRepo(db *sql.DB) repository.StartupRepository {
	return &StartupRepo{db: db}
}

const startupColumns = `
id, source, external_id, name, description, url, logo_url, batch, status,
tags, team_size, location, fingerprint, created_at, updated_at`

// scanStartup scans one startup row including the tags and location JSONB columns.
func scanStartup(row *sql.Row) (*entity.Startup, error) {
	var st entity.Startup
	var status string
	var tagsJSON, locationJSON []byte
	err := row.Scan(
		&st.ID, &st.Source, &st.ExternalID, &st.Name, &st.Description,
		&st.URL, &st.LogoURL, &st.Batch, &status,
		&tagsJSON, &st.TeamSize, &locationJSON,
		&st.Fingerprint, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.Status = entity.Status(status)

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &st.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if len(locationJSON) > 0 {
		var loc entity.Location
		if err := json.Unmarshal(locationJSON, &loc); err != nil {
			return nil, fmt.Errorf("unmarshal location: %w", err)
		}
		st.Location = &loc
	}
	return &st, nil
}

// marshalStartupJSON prepares the JSONB columns. Empty tag sets are stored
// as NULL rather than "[]" so unchanged records keep identical rows.
func marshalStartupJSON(st *entity.Startup) (tagsJSON, locationJSON []byte, err error) {
	if len(st.Tags) > 0 {
		tagsJSON, err = json.Marshal(st.Tags)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal tags: %w", err)
		}
	}
	if st.Location != nil {
		locationJSON, err = json.Marshal(st.Location)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal location: %w", err)
		}
	}
	return tagsJSON, locationJSON, nil
}

func (repo *StartupRepo) FindByIdentity(ctx context.Context, source, externalID string) (*entity.Startup, error) {
	const query = `
SELECT ` + startupColumns + `
FROM startups
WHERE source = $1 AND external_id = $2
LIMIT 1`
	st, err := scanStartup(repo.db.QueryRowContext(ctx, query, source, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByIdentity: %w", err)
	}

	founders, err := repo.listFounders(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("FindByIdentity: %w", err)
	}
	st.Founders = founders
	return st, nil
}

func (repo *StartupRepo) listFounders(ctx context.Context, startupID int64) ([]entity.Founder, error) {
	const query = `
SELECT id, startup_id, name, title, profile_url
FROM founders
WHERE startup_id = $1
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, startupID)
	if err != nil {
		return nil, fmt.Errorf("listFounders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var founders []entity.Founder
	for rows.Next() {
		var f entity.Founder
		if err := rows.Scan(&f.ID, &f.StartupID, &f.Name, &f.Title, &f.ProfileURL); err != nil {
			return nil, fmt.Errorf("listFounders: Scan: %w", err)
		}
		founders = append(founders, f)
	}
	return founders, rows.Err()
}

func (repo *StartupRepo) Insert(ctx context.Context, st *entity.Startup) error {
	tagsJSON, locationJSON, err := marshalStartupJSON(st)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	const query = `
INSERT INTO startups
  (source, external_id, name, description, url, logo_url, batch, status,
   tags, team_size, location, fingerprint, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
RETURNING id`
	if err := tx.QueryRowContext(ctx, query,
		st.Source, st.ExternalID, st.Name, st.Description, st.URL, st.LogoURL,
		st.Batch, string(st.Status), tagsJSON, st.TeamSize, locationJSON,
		st.Fingerprint, now,
	).Scan(&st.ID); err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	st.CreatedAt = now
	st.UpdatedAt = now

	if err := insertFounders(ctx, tx, st.ID, st.Founders); err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Insert: Commit: %w", err)
	}
	return nil
}

func (repo *StartupRepo) Update(ctx context.Context, st *entity.Startup) error {
	tagsJSON, locationJSON, err := marshalStartupJSON(st)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	const query = `
UPDATE startups
SET name = $1, description = $2, url = $3, logo_url = $4, batch = $5,
    status = $6, tags = $7, team_size = $8, location = $9,
    fingerprint = $10, updated_at = $11
WHERE id = $12`
	res, err := tx.ExecContext(ctx, query,
		st.Name, st.Description, st.URL, st.LogoURL, st.Batch,
		string(st.Status), tagsJSON, st.TeamSize, locationJSON,
		st.Fingerprint, now, st.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Update: startup id=%d: %w", st.ID, entity.ErrNotFound)
	}
	st.UpdatedAt = now

	// 既存のファウンダーを全削除してから書き直す
	if _, err := tx.ExecContext(ctx, `DELETE FROM founders WHERE startup_id = $1`, st.ID); err != nil {
		return fmt.Errorf("Update: delete founders: %w", err)
	}
	if err := insertFounders(ctx, tx, st.ID, st.Founders); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Update: Commit: %w", err)
	}
	return nil
}

func (repo *StartupRepo) ReplaceFounders(ctx context.Context, startupID int64, founders []entity.Founder) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReplaceFounders: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM founders WHERE startup_id = $1`, startupID); err != nil {
		return fmt.Errorf("ReplaceFounders: delete: %w", err)
	}
	if err := insertFounders(ctx, tx, startupID, founders); err != nil {
		return fmt.Errorf("ReplaceFounders: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ReplaceFounders: Commit: %w", err)
	}
	return nil
}

func insertFounders(ctx context.Context, tx *sql.Tx, startupID int64, founders []entity.Founder) error {
	const query = `
INSERT INTO founders (startup_id, name, title, profile_url)
VALUES ($1, $2, $3, $4)
RETURNING id`
	for i := range founders {
		founders[i].StartupID = startupID
		if err := tx.QueryRowContext(ctx, query,
			startupID, founders[i].Name, founders[i].Title, founders[i].ProfileURL,
		).Scan(&founders[i].ID); err != nil {
			return fmt.Errorf("insertFounders: %w", err)
		}
	}
	return nil
}

func (repo *StartupRepo) CountBySource(ctx context.Context, source string) (int64, error) {
	const query = `SELECT COUNT(*) FROM startups WHERE source = $1`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query, source).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountBySource: %w", err)
	}
	return count, nil
}
