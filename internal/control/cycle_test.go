package control

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/sqllogs/internal/core/cursor"
	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/indexing/emitter"
	"github.com/vietddude/sqllogs/internal/infra/storage/memory"
	"github.com/vietddude/sqllogs/internal/infra/vault"
)

type callLog []string

func (c *callLog) add(s string) { *c = append(*c, s) }

type fakeSource struct {
	calls    *callLog
	fresh    domain.CursorSet
	events   map[domain.ChainID][]domain.RawEvent
	ranges   []domain.BlockRange
	fetchErr error
}

func (f *fakeSource) FetchLatestCursors(ctx context.Context) (domain.CursorSet, error) {
	f.calls.add("cursors")
	return f.fresh, nil
}

func (f *fakeSource) FetchEvents(ctx context.Context, r domain.BlockRange) ([]domain.RawEvent, error) {
	f.calls.add("events")
	f.ranges = append(f.ranges, r)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.events[r.ChainID], nil
}

type fakeMirror struct {
	calls *callLog
	path  string
	err   error
}

func (m *fakeMirror) WriteFile(ctx context.Context, v, path string, signer vault.FileSigner) error {
	m.calls.add("mirror")
	m.path = path
	return m.err
}

type fakeNotifier struct {
	calls     *callLog
	partition domain.Partition
}

func (n *fakeNotifier) Dispatch(ctx context.Context, p domain.Partition) emitter.Report {
	n.calls.add("dispatch")
	n.partition = p
	return emitter.Report{}
}

type cycleFixture struct {
	calls    *callLog
	repo     *memory.CursorRepo
	source   *fakeSource
	mirror   *fakeMirror
	notifier *fakeNotifier
	rc       *RunContext
}

func newCycleFixture(t *testing.T, previous domain.CursorSet) *cycleFixture {
	t.Helper()
	calls := &callLog{}
	repo := memory.NewCursorRepo(memory.NewMemoryStorage())
	if len(previous) > 0 {
		if err := repo.Apply(context.Background(), previous, nil); err != nil {
			t.Fatal(err)
		}
	}
	classifier, err := cursor.NewClassifier([]string{"healthbot_1_1", "internal_1_9"}, "")
	if err != nil {
		t.Fatal(err)
	}

	f := &cycleFixture{
		calls:    calls,
		repo:     repo,
		source:   &fakeSource{calls: calls},
		mirror:   &fakeMirror{calls: calls},
		notifier: &fakeNotifier{calls: calls},
	}
	f.rc = &RunContext{
		RunID:      "test",
		Vault:      "bot.state",
		StatePath:  "/tmp/state.db",
		Cursors:    repo,
		Source:     f.source,
		Classifier: classifier,
		Mirror:     f.mirror,
		Notifier:   f.notifier,
	}
	return f
}

func name(s string) *string { return &s }

func TestRunCycle_FirstRun(t *testing.T) {
	f := newCycleFixture(t, nil)
	f.source.fresh = domain.CursorSet{
		{ChainID: 1, BlockNumber: 105, Timestamp: 1005},
		{ChainID: 2, BlockNumber: 50, Timestamp: 500},
	}

	result, err := RunCycle(context.Background(), f.rc)
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(result.Plan.Delta) != 2 || !result.Plan.FirstRun() {
		t.Errorf("first run delta must equal fresh, got %v", result.Plan.Delta)
	}
	if len(f.source.ranges) != 0 {
		t.Errorf("first observation must not query events, got %v", f.source.ranges)
	}
	want := []string{"cursors", "mirror"}
	if len(*f.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, *f.calls)
	}
	if f.mirror.path != "/tmp/state.db" {
		t.Errorf("mirrored %s", f.mirror.path)
	}

	stored, _ := f.repo.List(context.Background())
	if len(stored) != 2 {
		t.Errorf("expected 2 stored cursors, got %v", stored)
	}
}

func TestRunCycle_Advance(t *testing.T) {
	f := newCycleFixture(t, domain.CursorSet{{ChainID: 1, BlockNumber: 100, Timestamp: 1000}})
	f.source.fresh = domain.CursorSet{
		{ChainID: 1, BlockNumber: 105, Timestamp: 1005},
		{ChainID: 2, BlockNumber: 50, Timestamp: 500},
	}
	f.source.events = map[domain.ChainID][]domain.RawEvent{
		1: {
			{ChainID: 1, BlockNumber: 101, TableName: name("internal_1_9"), Statement: "insert into internal_1_9 values (1)"},
			{ChainID: 1, BlockNumber: 102, TableName: name("healthbot_1_1"), Statement: "update healthbot_1_1 set counter=2"},
			{ChainID: 1, BlockNumber: 103, TableName: name("pets_1_2"), Statement: "insert into pets_1_2 values (1)"},
			{ChainID: 1, BlockNumber: 104, Statement: "create table broken ("},
		},
	}

	result, err := RunCycle(context.Background(), f.rc)
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(f.source.ranges) != 1 {
		t.Fatalf("expected a single range, got %v", f.source.ranges)
	}
	r := f.source.ranges[0]
	if r.ChainID != 1 || r.FromExclusive != 100 || r.ToInclusive != 105 {
		t.Errorf("unexpected range %+v", r)
	}

	want := []string{"cursors", "events", "mirror", "dispatch"}
	for i, c := range want {
		if i >= len(*f.calls) || (*f.calls)[i] != c {
			t.Fatalf("expected calls %v, got %v", want, *f.calls)
		}
	}

	p := f.notifier.partition
	if len(p.Internal) != 1 || p.Internal[0].BlockNumber != 101 {
		t.Errorf("unexpected internal partition %+v", p.Internal)
	}
	if len(p.External) != 2 || p.External[0].BlockNumber != 103 || p.External[1].BlockNumber != 104 {
		t.Errorf("unexpected external partition %+v", p.External)
	}
	if result.Fetched != 4 {
		t.Errorf("expected 4 fetched, got %d", result.Fetched)
	}

	stored, _ := f.repo.List(context.Background())
	if len(stored) != 2 || stored[0].BlockNumber != 105 || stored[1].ChainID != 2 {
		t.Errorf("expected chain 1 advanced and chain 2 added, got %v", stored)
	}
}

func TestRunCycle_NoChange(t *testing.T) {
	prev := domain.CursorSet{{ChainID: 1, BlockNumber: 100, Timestamp: 1000}}
	f := newCycleFixture(t, prev)
	f.source.fresh = prev

	if _, err := RunCycle(context.Background(), f.rc); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	want := []string{"cursors", "mirror"}
	if len(*f.calls) != 2 || (*f.calls)[1] != want[1] {
		t.Errorf("an idle cycle must still mirror, got %v", *f.calls)
	}
}

func TestRunCycle_FetchErrorAborts(t *testing.T) {
	prev := domain.CursorSet{{ChainID: 1, BlockNumber: 100, Timestamp: 1000}}
	f := newCycleFixture(t, prev)
	f.source.fresh = domain.CursorSet{{ChainID: 1, BlockNumber: 105, Timestamp: 1005}}
	f.source.fetchErr = domain.ErrRateLimited

	_, err := RunCycle(context.Background(), f.rc)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	for _, c := range *f.calls {
		if c == "mirror" || c == "dispatch" {
			t.Errorf("aborted cycle must not %s", c)
		}
	}
	stored, _ := f.repo.List(context.Background())
	if stored[0].BlockNumber != 100 {
		t.Errorf("cursor advanced on failure: %v", stored)
	}
}

func TestRunCycle_MirrorErrorSkipsDispatch(t *testing.T) {
	f := newCycleFixture(t, domain.CursorSet{{ChainID: 1, BlockNumber: 100, Timestamp: 1000}})
	f.source.fresh = domain.CursorSet{{ChainID: 1, BlockNumber: 105, Timestamp: 1005}}
	f.source.events = map[domain.ChainID][]domain.RawEvent{
		1: {{ChainID: 1, BlockNumber: 101, TableName: name("pets_1_2"), Statement: "delete from pets_1_2"}},
	}
	f.mirror.err = domain.ErrWrite

	_, err := RunCycle(context.Background(), f.rc)
	if !errors.Is(err, domain.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	for _, c := range *f.calls {
		if c == "dispatch" {
			t.Error("events must not be posted when the snapshot was not written")
		}
	}
}
