package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"startup-radar/internal/domain/entity"
	"startup-radar/internal/usecase/normalize"
	"startup-radar/internal/usecase/reconcile"
)

/* ───────── スタブ実装 ───────── */

type stubStartupRepo struct {
	byIdentity map[string]*entity.Startup
	nextID     int64

	findErr   error
	insertErr error
	updateErr error

	inserts int
	updates int
}

func identityKey(source, externalID string) string {
	return source + "/" + externalID
}

func newStubStartupRepo() *stubStartupRepo {
	return &stubStartupRepo{byIdentity: make(map[string]*entity.Startup)}
}

func (s *stubStartupRepo) FindByIdentity(_ context.Context, source, externalID string) (*entity.Startup, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	st, ok := s.byIdentity[identityKey(source, externalID)]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *stubStartupRepo) Insert(_ context.Context, st *entity.Startup) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.nextID++
	st.ID = s.nextID
	cp := *st
	s.byIdentity[identityKey(st.Source, st.ExternalID)] = &cp
	s.inserts++
	return nil
}

func (s *stubStartupRepo) Update(_ context.Context, st *entity.Startup) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	cp := *st
	s.byIdentity[identityKey(st.Source, st.ExternalID)] = &cp
	s.updates++
	return nil
}

func (s *stubStartupRepo) ReplaceFounders(_ context.Context, _ int64, _ []entity.Founder) error {
	return nil
}

func (s *stubStartupRepo) CountBySource(_ context.Context, source string) (int64, error) {
	var n int64
	for _, st := range s.byIdentity {
		if st.Source == source {
			n++
		}
	}
	return n, nil
}

type stubRunRepo struct {
	nextID    int64
	created   []*entity.ScraperRun
	completed []*entity.ScraperRun
	running   *entity.ScraperRun
	last      *entity.ScraperRun

	createErr  error
	lastErr    error
	runningErr error
}

func (r *stubRunRepo) Create(_ context.Context, source string) (*entity.ScraperRun, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	run := &entity.ScraperRun{
		ID:        r.nextID,
		Source:    source,
		StartTime: time.Now(),
		Status:    entity.RunStatusRunning,
	}
	r.created = append(r.created, run)
	return run, nil
}

func (r *stubRunRepo) Complete(_ context.Context, run *entity.ScraperRun) error {
	cp := *run
	r.completed = append(r.completed, &cp)
	return nil
}

func (r *stubRunRepo) Get(_ context.Context, _ int64) (*entity.ScraperRun, error) {
	return nil, nil
}

func (r *stubRunRepo) LastSuccessful(_ context.Context, _ string) (*entity.ScraperRun, error) {
	return r.last, r.lastErr
}

func (r *stubRunRepo) FindRunning(_ context.Context, _ string) (*entity.ScraperRun, error) {
	return r.running, r.runningErr
}

// stubSource feeds a fixed record slice, optionally failing mid-stream.
type stubSource struct {
	name       string
	records    []*normalize.RawRecord
	openErr    error
	failAfter  int // fail after yielding this many records (0 = never)
	iterations int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Open(_ context.Context, _ reconcile.FetchOptions) (reconcile.RecordIterator, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &stubIterator{src: s}, nil
}

type stubIterator struct {
	src *stubSource
	pos int
}

func (it *stubIterator) Next(_ context.Context) (*normalize.RawRecord, error) {
	if it.src.failAfter > 0 && it.pos >= it.src.failAfter {
		return nil, fmt.Errorf("upstream hung up")
	}
	if it.pos >= len(it.src.records) {
		return nil, reconcile.ErrEndOfRecords
	}
	rec := it.src.records[it.pos]
	it.pos++
	it.src.iterations++
	return rec, nil
}

func (it *stubIterator) Close() error { return nil }

func rawRecords() []*normalize.RawRecord {
	return []*normalize.RawRecord{
		{Text: "Acme Corp, San Francisco, CA - Building widgets", Batch: "W24", Tags: []string{"B2B"}},
		{Text: "Widgetio, Austin, TX – makes widgets", Batch: "W24"},
		{Text: "Veldt\nCarbon credit portfolios.", Batch: "S24"},
	}
}

func newService(startups *stubStartupRepo, runs *stubRunRepo, src *stubSource) *reconcile.Service {
	return reconcile.NewService(startups, runs, map[string]reconcile.RecordSource{src.name: src}, 0)
}

/* ───────── パス実行 ───────── */

func TestRun_InsertThenUnchanged(t *testing.T) {
	startups := newStubStartupRepo()
	runs := &stubRunRepo{}
	src := &stubSource{name: "yc", records: rawRecords()}
	svc := newService(startups, runs, src)

	run, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc"})
	if err != nil {
		t.Fatalf("first Run err=%v", err)
	}
	if run.Status != entity.RunStatusSuccess {
		t.Fatalf("first run status = %s", run.Status)
	}
	if run.StartupsAdded != 3 || run.StartupsUnchanged != 0 || run.ErrorCount != 0 {
		t.Fatalf("first run counters = %+v", run)
	}
	if run.EndTime == nil {
		t.Fatal("first run has no end time")
	}

	// 同じレコードでの再実行は一切書き込まない
	run2, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc"})
	if err != nil {
		t.Fatalf("second Run err=%v", err)
	}
	if run2.StartupsAdded != 0 || run2.StartupsUpdated != 0 || run2.StartupsUnchanged != 3 {
		t.Fatalf("second run counters = %+v", run2)
	}
	if startups.inserts != 3 || startups.updates != 0 {
		t.Fatalf("repo writes: inserts=%d updates=%d", startups.inserts, startups.updates)
	}
}

func TestRun_UpdateOnMaterialChange(t *testing.T) {
	startups := newStubStartupRepo()
	runs := &stubRunRepo{}
	src := &stubSource{name: "yc", records: rawRecords()}
	svc := newService(startups, runs, src)

	if _, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc"}); err != nil {
		t.Fatalf("seed Run err=%v", err)
	}

	// 1件だけ説明文を変更
	changed := rawRecords()
	changed[0].Text = "Acme Corp, San Francisco, CA - Building better widgets"
	src.records = changed

	run, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc"})
	if err != nil {
		t.Fatalf("Run err=%v", err)
	}
	if run.StartupsUpdated != 1 || run.StartupsUnchanged != 2 || run.StartupsAdded != 0 {
		t.Fatalf("counters = added=%d updated=%d unchanged=%d",
			run.StartupsAdded, run.StartupsUpdated, run.StartupsUnchanged)
	}
}

func TestRun_MidStreamFailureKeepsCommittedWork(t *testing.T) {
	startups := newStubStartupRepo()
	runs := &stubRunRepo{}
	src := &stubSource{name: "yc", records: rawRecords(), failAfter: 2}
	svc := newService(startups, runs, src)

	run, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc"})
	if err == nil {
		t.Fatal("expected mid-stream error")
	}
	if run.Status != entity.RunStatusPartialFailure {
		t.Fatalf("status = %s, want partial_failure", run.Status)
	}
	if run.StartupsAdded != 2 {
		t.Fatalf("added = %d, want the 2 records before the failure", run.StartupsAdded)
	}
	if run.EndTime == nil || run.ErrorMessage == "" {
		t.Fatalf("run not closed properly: %+v", run)
	}
	// 閉じられたランが永続化されている
	if len(runs.completed) != 1 || !runs.completed[0].Status.Terminal() {
		t.Fatalf("completed runs = %+v", runs.completed)
	}
}

func TestRun_OpenFailureFailsRun(t *testing.T) {
	startups := newStubStartupRepo()
	runs := &stubRunRepo{}
	src := &stubSource{name: "yc", openErr: fmt.Errorf("connection refused")}
	svc := newService(startups, runs, src)

	run, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc"})
	if err == nil {
		t.Fatal("expected open error")
	}
	if run.Status != entity.RunStatusFailed {
		t.Fatalf("status = %s, want failed", run.Status)
	}
	if run.EndTime == nil {
		t.Fatal("failed run must still be closed")
	}
}

func TestRun_RecordErrorsAreContained(t *testing.T) {
	startups := newStubStartupRepo()
	runs := &stubRunRepo{}
	records := rawRecords()
	records[1].Text = "   " // 名前が取れないレコード
	src := &stubSource{name: "yc", records: records}
	svc := newService(startups, runs, src)

	run, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc"})
	if err != nil {
		t.Fatalf("Run err=%v, record errors must not abort the pass", err)
	}
	if run.Status != entity.RunStatusPartialFailure {
		t.Fatalf("status = %s, want partial_failure", run.Status)
	}
	if run.StartupsAdded != 2 || run.ErrorCount != 1 || run.TotalProcessed != 3 {
		t.Fatalf("counters = %+v", run)
	}
}

func TestRun_UnknownSource(t *testing.T) {
	svc := reconcile.NewService(newStubStartupRepo(), &stubRunRepo{}, nil, 0)
	_, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "nope"})
	if !errors.Is(err, reconcile.ErrUnknownSource) {
		t.Fatalf("err = %v, want ErrUnknownSource", err)
	}
}

func TestRun_OverlapGuard(t *testing.T) {
	runs := &stubRunRepo{running: &entity.ScraperRun{ID: 7, Source: "yc", Status: entity.RunStatusRunning, StartTime: time.Now()}}
	src := &stubSource{name: "yc", records: rawRecords()}
	svc := newService(newStubStartupRepo(), runs, src)

	_, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc"})
	if !errors.Is(err, reconcile.ErrPassInProgress) {
		t.Fatalf("err = %v, want ErrPassInProgress", err)
	}
	if len(runs.created) != 0 {
		t.Fatal("no run record may be created while another pass is running")
	}
}

func TestRun_LimitStopsEarly(t *testing.T) {
	startups := newStubStartupRepo()
	runs := &stubRunRepo{}
	src := &stubSource{name: "yc", records: rawRecords()}
	svc := newService(startups, runs, src)

	run, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc", Limit: 2})
	if err != nil {
		t.Fatalf("Run err=%v", err)
	}
	if run.TotalProcessed != 2 || run.StartupsAdded != 2 {
		t.Fatalf("counters = %+v", run)
	}
}

// 同じ derived id でもソースが違えば別エンティティ
func TestRun_IdentityIsolatedPerSource(t *testing.T) {
	startups := newStubStartupRepo()
	runs := &stubRunRepo{}
	rec := []*normalize.RawRecord{{Text: "Acme - widgets", Batch: "W24"}}
	srcA := &stubSource{name: "yc", records: rec}
	srcB := &stubSource{name: "techstars", records: rec}
	svc := reconcile.NewService(startups, runs, map[string]reconcile.RecordSource{
		"yc": srcA, "techstars": srcB,
	}, 0)

	if _, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "yc"}); err != nil {
		t.Fatalf("yc Run err=%v", err)
	}
	run, err := svc.Run(context.Background(), reconcile.RunOptions{Source: "techstars"})
	if err != nil {
		t.Fatalf("techstars Run err=%v", err)
	}
	if run.StartupsAdded != 1 {
		t.Fatalf("second source added = %d, want a separate insert", run.StartupsAdded)
	}
	if startups.inserts != 2 {
		t.Fatalf("inserts = %d, want 2 isolated entities", startups.inserts)
	}
}

/* ───────── 更新ゲート ───────── */

func TestUpdateDue_FailOpenOnLookupError(t *testing.T) {
	runs := &stubRunRepo{lastErr: fmt.Errorf("db down")}
	svc := reconcile.NewService(newStubStartupRepo(), runs, nil, 0)

	due, err := svc.UpdateDue(context.Background(), "yc", false)
	if !due {
		t.Fatal("lookup failure must default to running the pass")
	}
	if err == nil {
		t.Fatal("lookup error must be surfaced for logging")
	}
}

func TestUpdateDue_RecentRunSkips(t *testing.T) {
	end := time.Now().Add(-time.Hour)
	runs := &stubRunRepo{last: finishedRun(end)}
	svc := reconcile.NewService(newStubStartupRepo(), runs, nil, 0)

	due, err := svc.UpdateDue(context.Background(), "yc", false)
	if err != nil {
		t.Fatalf("UpdateDue err=%v", err)
	}
	if due {
		t.Fatal("run one hour ago must not be due under the default interval")
	}
}
