package store

import (
	"path/filepath"
	"testing"
)

// newTestEngine opens an Engine backed by a fresh log file in a temp
// dir, with a controllable clock so TTL behavior is deterministic.
func newTestEngine(t *testing.T, nowMS *int64) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	e, err := Open(Config{LogPath: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e.now = func() int64 { return *nowMS }
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func dispatchAll(d *Dispatcher, lines []string) []string {
	var out []string
	for _, line := range lines {
		reply := d.Dispatch(splitFields(line))
		if reply != nil {
			out = append(out, reply.Lines()...)
		}
	}
	return out
}

// splitFields is a tiny whitespace tokenizer standing in for the
// ioloop's real one, just enough to drive scenario tests without
// importing that package (avoids a dependency cycle in tests).
func splitFields(line string) []string {
	var fields []string
	start := -1
	for i, r := range line {
		if r == ' ' || r == '\t' {
			if start != -1 {
				fields = append(fields, line[start:i])
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		fields = append(fields, line[start:])
	}
	return fields
}

func assertEqual(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q (full got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}

func TestScenarioS1BasicSetGetDel(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	got := dispatchAll(d, []string{"SET a hello", "GET a", "DEL a", "GET a"})
	assertEqual(t, got, []string{"OK", "hello", "1", "nil"})
}

func TestScenarioS2SetPreservesTTL(t *testing.T) {
	now := int64(1_000_000)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	got := dispatchAll(d, []string{"SET x 1", "EXPIRE x 60000", "SET x 2"})
	assertEqual(t, got, []string{"OK", "1", "OK"})

	ttl := e.TTL("x")
	if ttl <= 0 || ttl > 60000 {
		t.Fatalf("expected TTL in (0, 60000], got %d", ttl)
	}
}

func TestScenarioS3TransactionCommit(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	got := dispatchAll(d, []string{
		"SET a 1", "BEGIN", "SET a 2", "GET a", "SET b 3", "COMMIT", "GET a", "GET b",
	})
	assertEqual(t, got, []string{"OK", "OK", "OK", "2", "OK", "OK", "2", "3"})
}

func TestScenarioS4TransactionAbort(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	got := dispatchAll(d, []string{"SET a 1", "BEGIN", "SET a 2", "DEL a", "ABORT", "GET a"})
	assertEqual(t, got, []string{"OK", "OK", "OK", "1", "OK", "1"})
}

func TestScenarioS5ExpirationIsLazy(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	got := dispatchAll(d, []string{"SET k v", "EXPIRE k 1"})
	assertEqual(t, got, []string{"OK", "1"})

	now += 10 // advance wall clock past the 1ms deadline

	got = dispatchAll(d, []string{"EXISTS k", "TTL k"})
	assertEqual(t, got, []string{"0", "-2"})
}

func TestScenarioS6RangeWithTransactionOverlay(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	got := dispatchAll(d, []string{
		"SET a 1", "SET c 3", "BEGIN", "SET b 2", "DEL a", "RANGE a z", "COMMIT",
	})
	assertEqual(t, got, []string{"OK", "OK", "OK", "OK", "1", "c", "END", "OK"})
}

func TestAbortLeavesStateUnchanged(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	dispatchAll(d, []string{"SET a 1", "SET b 2"})
	before := e.Range("", "")

	dispatchAll(d, []string{"BEGIN", "SET a 99", "DEL b", "SET c 3", "ABORT"})
	after := e.Range("", "")

	assertEqual(t, after, before)
}

func TestTTLNeverExpiredIsMinusOneThenMinusTwoAfterDel(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	dispatchAll(d, []string{"SET k v"})
	if ttl := e.TTL("k"); ttl != -1 {
		t.Fatalf("expected -1, got %d", ttl)
	}
	dispatchAll(d, []string{"DEL k"})
	if ttl := e.TTL("k"); ttl != -2 {
		t.Fatalf("expected -2 after delete, got %d", ttl)
	}
}

func TestPersistClearsDeadline(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	dispatchAll(d, []string{"SET k v", "EXPIRE k 5000"})
	ok, err := e.Persist("k")
	if err != nil || !ok {
		t.Fatalf("expected persist to succeed, ok=%v err=%v", ok, err)
	}
	if ttl := e.TTL("k"); ttl != -1 {
		t.Fatalf("expected -1 after persist, got %d", ttl)
	}
}

func TestBeginTwiceErrors(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	if err := e.Begin(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := e.Begin(); err != ErrTxnAlreadyOpen {
		t.Fatalf("expected ErrTxnAlreadyOpen, got %v", err)
	}
}

func TestCommitWithoutBeginErrors(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	if err := e.Commit(); err != ErrNoTxnOpen {
		t.Fatalf("expected ErrNoTxnOpen, got %v", err)
	}
}

func TestDelInsideTransactionAlwaysRepliesOne(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	got := dispatchAll(d, []string{"BEGIN", "DEL missing"})
	assertEqual(t, got, []string{"OK", "1"})
}

func TestMSetOddArgCountFailsWithoutEffect(t *testing.T) {
	now := int64(0)
	e := newTestEngine(t, &now)
	d := NewDispatcher(e)

	reply := d.Dispatch([]string{"MSET", "a", "1", "b"})
	assertEqual(t, reply.Lines(), []string{"ERR wrong number of arguments for MSET"})
	if e.Exists("a") {
		t.Fatalf("expected no effect from failed MSET")
	}
}
