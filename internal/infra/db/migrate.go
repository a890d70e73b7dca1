package db

import "database/sql"

func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS startups (
    id           BIGSERIAL PRIMARY KEY,
    source       TEXT NOT NULL,
    external_id  TEXT NOT NULL,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL DEFAULT '',
    logo_url     TEXT NOT NULL DEFAULT '',
    batch        TEXT NOT NULL DEFAULT '',
    status       VARCHAR(20) NOT NULL DEFAULT 'unknown',
    tags         JSONB,
    team_size    INTEGER,
    location     JSONB,
    fingerprint  CHAR(64) NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (source, external_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS founders (
    id          BIGSERIAL PRIMARY KEY,
    startup_id  BIGINT NOT NULL REFERENCES startups(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    profile_url TEXT NOT NULL DEFAULT ''
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS scraper_runs (
    id                 BIGSERIAL PRIMARY KEY,
    source             TEXT NOT NULL,
    start_time         TIMESTAMPTZ NOT NULL,
    end_time           TIMESTAMPTZ,
    status             VARCHAR(20) NOT NULL DEFAULT 'running',
    startups_added     INTEGER NOT NULL DEFAULT 0,
    startups_updated   INTEGER NOT NULL DEFAULT 0,
    startups_unchanged INTEGER NOT NULL DEFAULT 0,
    error_count        INTEGER NOT NULL DEFAULT 0,
    total_processed    INTEGER NOT NULL DEFAULT 0,
    error_message      TEXT
)`); err != nil {
		return err
	}

	indexes := []string{
		// 同一ソースの更新パスは (source, external_id) lookup が支配的
		`CREATE INDEX IF NOT EXISTS idx_startups_source ON startups(source)`,
		`CREATE INDEX IF NOT EXISTS idx_startups_batch ON startups(batch)`,
		`CREATE INDEX IF NOT EXISTS idx_founders_startup_id ON founders(startup_id)`,
		// LastSuccessful / FindRunning 用
		`CREATE INDEX IF NOT EXISTS idx_scraper_runs_source_status ON scraper_runs(source, status)`,
		`CREATE INDEX IF NOT EXISTS idx_scraper_runs_end_time ON scraper_runs(end_time DESC)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// ステータス制約の追加(既に存在する場合はスキップ)
	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_run_status'
    ) THEN
        ALTER TABLE scraper_runs ADD CONSTRAINT chk_run_status
        CHECK (status IN ('running', 'success', 'partial_failure', 'failed'));
    END IF;
END $$;
`)

	return nil
}
