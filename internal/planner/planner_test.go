package planner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"course-planner/internal/composio"
	"course-planner/internal/config"
	"course-planner/internal/connections"
)

type call struct {
	slug string
	args map[string]any
}

type stubInvoker struct {
	user    string
	calls   []call
	results map[string][]composio.Result
}

func (s *stubInvoker) SetUser(u string) { s.user = u }

func (s *stubInvoker) Execute(_ context.Context, slug string, args map[string]any) composio.Result {
	s.calls = append(s.calls, call{slug: slug, args: args})
	queue := s.results[slug]
	if len(queue) == 0 {
		return composio.Result{OK: true, Data: map[string]any{}}
	}
	res := queue[0]
	s.results[slug] = queue[1:]
	return res
}

func (s *stubInvoker) callsFor(slug string) []call {
	var out []call
	for _, c := range s.calls {
		if c.slug == slug {
			out = append(out, c)
		}
	}
	return out
}

type memStore struct {
	snap  connections.Snapshot
	saves int
}

func (m *memStore) Load() (connections.Snapshot, error) {
	if m.snap.Connections == nil {
		m.snap.Connections = map[string]json.RawMessage{}
	}
	return m.snap, nil
}

func (m *memStore) Save(s connections.Snapshot) error {
	m.snap = s
	m.saves++
	return nil
}

type stubLinker struct{ linked []string }

func (l *stubLinker) LinkAndWait(_ context.Context, _, authConfigID string) (json.RawMessage, error) {
	l.linked = append(l.linked, authConfigID)
	return json.RawMessage(`{"id":"conn"}`), nil
}

type stubExtractor struct{ text string }

func (s stubExtractor) ExtractText(string) (string, error) { return s.text, nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DownloadDir:      t.TempDir(),
		SyllabusFileName: "syllabus.pdf",
		NotionDatabaseID: "db-1",
		CalendarID:       "primary",
		MaxLessons:       12,
		StartDate:        "2024-01-08",
		StartTime:        "09:00",
		Timezone:         "UTC",
	}
}

func driveResults(t *testing.T, dir string) map[string][]composio.Result {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "syllabus.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("seed download: %v", err)
	}
	return map[string][]composio.Result{
		SlugFindFile: {{OK: true, Data: map[string]any{
			"files": []any{map[string]any{"id": "file-1"}},
		}}},
		SlugDownloadFile: {{OK: true, Data: map[string]any{"path": "syllabus.pdf"}}},
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	inv := &stubInvoker{results: driveResults(t, cfg.DownloadDir)}
	store := &memStore{}
	p := New(cfg, inv, &stubLinker{}, store, stubExtractor{text: "Week 1: Intro\nHello\nWeek 2: Loops\nWorld"})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if inv.user == "" {
		t.Fatalf("invoker user identity not set")
	}

	finds := inv.callsFor(SlugFindFile)
	if len(finds) != 1 || finds[0].args["q"] != "name = 'syllabus.pdf'" {
		t.Fatalf("unexpected find call: %+v", finds)
	}
	dls := inv.callsFor(SlugDownloadFile)
	if len(dls) != 1 || dls[0].args["file_id"] != "file-1" {
		t.Fatalf("unexpected download call: %+v", dls)
	}

	rows := inv.callsFor(SlugInsertRow)
	if len(rows) != 2 {
		t.Fatalf("want 2 notion rows, got %d", len(rows))
	}
	props, ok := rows[0].args["properties"].([]any)
	if !ok || len(props) != 2 {
		t.Fatalf("unexpected row properties: %+v", rows[0].args)
	}
	title := props[0].(map[string]any)
	if title["value"] != "Week 1" || title["type"] != "title" {
		t.Fatalf("unexpected title property: %+v", title)
	}

	events := inv.callsFor(SlugCreateEvent)
	if len(events) != 2 {
		t.Fatalf("want 2 calendar events, got %d", len(events))
	}
	if events[0].args["start_datetime"] != "2024-01-08T09:00:00" {
		t.Fatalf("first event start: %v", events[0].args["start_datetime"])
	}
	if events[1].args["start_datetime"] != "2024-01-15T09:00:00" {
		t.Fatalf("second event start: %v", events[1].args["start_datetime"])
	}
	if events[0].args["timezone"] != "UTC" || events[0].args["summary"] != "Week 1" {
		t.Fatalf("unexpected event args: %+v", events[0].args)
	}

	// end-of-run snapshot re-save
	if store.saves == 0 {
		t.Fatalf("snapshot must be re-saved at end of run")
	}
}

func TestRunLinksMissingServices(t *testing.T) {
	cfg := testConfig(t)
	cfg.GoogleDriveAuthConfigID = "ac-drive"
	cfg.NotionAuthConfigID = "ac-notion"
	inv := &stubInvoker{results: driveResults(t, cfg.DownloadDir)}
	store := &memStore{snap: connections.Snapshot{
		UserID:      "u-known",
		Connections: map[string]json.RawMessage{ServiceNotion: json.RawMessage(`"tok"`)},
	}}
	lk := &stubLinker{}
	p := New(cfg, inv, lk, store, stubExtractor{text: "Week 1: Intro\nHello"})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(lk.linked) != 1 || lk.linked[0] != "ac-drive" {
		t.Fatalf("only the unlinked drive service should be linked, got %v", lk.linked)
	}
	if inv.user != "u-known" {
		t.Fatalf("snapshot user id must win, got %q", inv.user)
	}
	if !store.snap.Linked(ServiceDrive) {
		t.Fatalf("new drive token not persisted")
	}
}

func TestRunFatalOnFindFailure(t *testing.T) {
	cfg := testConfig(t)
	inv := &stubInvoker{results: map[string][]composio.Result{
		SlugFindFile: {{OK: false, Err: "remote says no"}},
	}}
	p := New(cfg, inv, &stubLinker{}, &memStore{}, stubExtractor{})

	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("find failure must abort the run")
	}
	if len(inv.callsFor(SlugDownloadFile)) != 0 {
		t.Fatalf("must not download after a failed find")
	}
}

func TestRunFatalOnEmptyFindResult(t *testing.T) {
	cfg := testConfig(t)
	inv := &stubInvoker{results: map[string][]composio.Result{
		SlugFindFile: {{OK: true, Data: map[string]any{"files": []any{}}}},
	}}
	p := New(cfg, inv, &stubLinker{}, &memStore{}, stubExtractor{})

	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("empty find result must abort the run")
	}
}

func TestRunFatalOnZeroLessons(t *testing.T) {
	cfg := testConfig(t)
	inv := &stubInvoker{results: driveResults(t, cfg.DownloadDir)}
	p := New(cfg, inv, &stubLinker{}, &memStore{}, stubExtractor{text: "   \n  "})

	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("an empty schedule must never be silently accepted")
	}
	if len(inv.callsFor(SlugInsertRow)) != 0 {
		t.Fatalf("no downstream writes after zero lessons")
	}
}

func TestRunContinuesPastRowFailures(t *testing.T) {
	cfg := testConfig(t)
	results := driveResults(t, cfg.DownloadDir)
	results[SlugInsertRow] = []composio.Result{
		{OK: false, Err: "insert rejected"},
		{OK: true, Data: map[string]any{}},
	}
	inv := &stubInvoker{results: results}
	p := New(cfg, inv, &stubLinker{}, &memStore{}, stubExtractor{text: "Week 1: A\nWeek 2: B"})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("a single failed row must not abort the run: %v", err)
	}
	if len(inv.callsFor(SlugInsertRow)) != 2 {
		t.Fatalf("second row must still be attempted")
	}
	if len(inv.callsFor(SlugCreateEvent)) != 2 {
		t.Fatalf("calendar stage must still run")
	}
}

func TestPickFileID(t *testing.T) {
	cases := []struct {
		data any
		want string
	}{
		{map[string]any{"files": []any{map[string]any{"id": "a"}}}, "a"},
		{map[string]any{"items": []any{map[string]any{"file_id": "b"}}}, "b"},
		{[]any{map[string]any{"driveId": "c"}}, "c"},
		{map[string]any{"files": []any{}}, ""},
		{"garbage", ""},
	}
	for _, tc := range cases {
		if got := pickFileID(tc.data); got != tc.want {
			t.Fatalf("pickFileID(%v) = %q, want %q", tc.data, got, tc.want)
		}
	}
}
