package postgres_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"startup-radar/internal/domain/entity"
	pg "startup-radar/internal/infra/adapter/persistence/postgres"
)

/* ─────────────────────────── ヘルパ ─────────────────────────── */

func startupRow(s *entity.Startup) *sqlmock.Rows {
	var tagsJSON, locJSON []byte
	if len(s.Tags) > 0 {
		tagsJSON, _ = json.Marshal(s.Tags)
	}
	if s.Location != nil {
		locJSON, _ = json.Marshal(s.Location)
	}
	var teamSize interface{}
	if s.TeamSize != nil {
		teamSize = *s.TeamSize
	}
	return sqlmock.NewRows([]string{
		"id", "source", "external_id", "name", "description",
		"url", "logo_url", "batch", "status",
		"tags", "team_size", "location",
		"fingerprint", "created_at", "updated_at",
	}).AddRow(
		s.ID, s.Source, s.ExternalID, s.Name, s.Description,
		s.URL, s.LogoURL, s.Batch, string(s.Status),
		tagsJSON, teamSize, locJSON,
		s.Fingerprint, s.CreatedAt, s.UpdatedAt,
	)
}

func founderRows(founders ...entity.Founder) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "startup_id", "name", "title", "profile_url"})
	for _, f := range founders {
		rows.AddRow(f.ID, f.StartupID, f.Name, f.Title, f.ProfileURL)
	}
	return rows
}

func sampleStartup() *entity.Startup {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	team := 12
	return &entity.Startup{
		ID: 1, Source: "yc", ExternalID: "acme-corp-w24",
		Name: "Acme Corp", Description: "Building widgets",
		URL: "https://acme.example", Batch: "W24",
		Status: entity.StatusActive,
		Tags:   []string{"B2B", "SaaS"},
		TeamSize: &team,
		Location: &entity.Location{City: "San Francisco", Region: "CA", Raw: "San Francisco, CA"},
		Fingerprint: "f0f0f0f0", CreatedAt: now, UpdatedAt: now,
	}
}

/* ─────────────────────────── 1. FindByIdentity ─────────────────────────── */

func TestStartupRepo_FindByIdentity(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := sampleStartup()
	want.Founders = []entity.Founder{
		{ID: 10, StartupID: 1, Name: "Ada Example", Title: "CEO"},
	}

	mock.ExpectQuery("FROM startups").
		WithArgs("yc", "acme-corp-w24").
		WillReturnRows(startupRow(want))
	mock.ExpectQuery("FROM founders").
		WithArgs(int64(1)).
		WillReturnRows(founderRows(want.Founders...))

	repo := pg.NewStartupRepo(db)
	got, err := repo.FindByIdentity(context.Background(), "yc", "acme-corp-w24")
	if err != nil {
		t.Fatalf("FindByIdentity err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStartupRepo_FindByIdentity_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM startups").
		WithArgs("yc", "ghost-w24").
		WillReturnError(sql.ErrNoRows)

	repo := pg.NewStartupRepo(db)
	got, err := repo.FindByIdentity(context.Background(), "yc", "ghost-w24")
	if err != nil || got != nil {
		t.Fatalf("want (nil, nil), got (%v, %v)", got, err)
	}
}

/* ─────────────────────────── 2. Insert ─────────────────────────── */

func TestStartupRepo_Insert(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	st := sampleStartup()
	st.ID = 0
	st.Founders = []entity.Founder{{Name: "Ada Example", Title: "CEO"}}

	tagsJSON, _ := json.Marshal(st.Tags)
	locJSON, _ := json.Marshal(st.Location)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO startups")).
		WithArgs("yc", "acme-corp-w24", "Acme Corp", "Building widgets",
			"https://acme.example", "", "W24", "active",
			tagsJSON, st.TeamSize, locJSON, "f0f0f0f0", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO founders")).
		WithArgs(int64(42), "Ada Example", "CEO", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectCommit()

	repo := pg.NewStartupRepo(db)
	if err := repo.Insert(context.Background(), st); err != nil {
		t.Fatalf("Insert err=%v", err)
	}
	if st.ID != 42 {
		t.Fatalf("generated id not written back: %d", st.ID)
	}
	if st.Founders[0].ID != 100 || st.Founders[0].StartupID != 42 {
		t.Fatalf("founder ids not written back: %+v", st.Founders[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ─────────────────────────── 3. Update ─────────────────────────── */

func TestStartupRepo_Update(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	st := sampleStartup()
	st.Description = "Building better widgets"
	st.Founders = []entity.Founder{{Name: "Ada Example", Title: "CEO"}}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE startups").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM founders").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO founders")).
		WithArgs(int64(1), "Ada Example", "CEO", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectCommit()

	repo := pg.NewStartupRepo(db)
	if err := repo.Update(context.Background(), st); err != nil {
		t.Fatalf("Update err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStartupRepo_Update_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	st := sampleStartup()
	st.ID = 99

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE startups").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := pg.NewStartupRepo(db)
	err := repo.Update(context.Background(), st)
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

/* ─────────────────────────── 4. ReplaceFounders ─────────────────────────── */

func TestStartupRepo_ReplaceFounders(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM founders").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO founders")).
		WithArgs(int64(7), "Grace Example", "CTO", "https://example.com/grace").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(200)))
	mock.ExpectCommit()

	repo := pg.NewStartupRepo(db)
	err := repo.ReplaceFounders(context.Background(), 7, []entity.Founder{
		{Name: "Grace Example", Title: "CTO", ProfileURL: "https://example.com/grace"},
	})
	if err != nil {
		t.Fatalf("ReplaceFounders err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ─────────────────────────── 5. CountBySource ─────────────────────────── */

func TestStartupRepo_CountBySource(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM startups")).
		WithArgs("yc").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(311)))

	repo := pg.NewStartupRepo(db)
	count, err := repo.CountBySource(context.Background(), "yc")
	if err != nil || count != 311 {
		t.Fatalf("CountBySource err=%v count=%d", err, count)
	}
}
