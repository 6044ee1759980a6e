package store

import (
	"fmt"
	"sync"
)

// ErrTxnAlreadyOpen and ErrNoTxnOpen are the two transactional state
// errors from the spec's BEGIN/COMMIT/ABORT state machine.
var (
	ErrTxnAlreadyOpen = fmt.Errorf("transaction already in progress")
	ErrNoTxnOpen      = fmt.Errorf("no transaction in progress")
)

// Engine owns the keyspace, the single transaction buffer, and the
// durability log. It is the non-concurrent, synchronous core described
// in spec §5: exactly one command is in flight at a time, so no
// locking is needed anywhere below.
type Engine struct {
	ks  keyspace
	tx  txn
	log *durLog
	now Clock

	closeOnce sync.Once
	closeErr  error
}

// Config controls how an Engine's durability log is opened.
type Config struct {
	LogPath   string
	FsyncEach bool
}

// Open replays LogPath (if it exists) to reconstruct the keyspace, then
// opens it for append so subsequent commands can be durably recorded.
// A missing log file is normal (first run), not an error.
func Open(cfg Config) (*Engine, error) {
	e := &Engine{now: realClock}
	entries, err := replayDurLog(cfg.LogPath)
	if err != nil {
		return nil, err
	}
	for _, ent := range entries {
		e.replayEntry(ent)
	}
	l, err := openDurLog(cfg.LogPath, cfg.FsyncEach)
	if err != nil {
		return nil, err
	}
	e.log = l
	return e, nil
}

// Close releases the durability log's file handle. It is idempotent:
// the process lifecycle may invoke it both from a signal handler and
// from the normal shutdown path.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.log.Close()
	})
	return e.closeErr
}

// replayEntry applies one durability-log entry directly to the
// keyspace, bypassing the log writer (the entry came from the log
// itself) and the transaction buffer (replay happens before any
// command is accepted, so none can be open).
func (e *Engine) replayEntry(ent logEntry) {
	switch ent.op {
	case "SET":
		// A logged SET carries no deadline, so replaying it clears
		// any expiration the key has at this point in the replay
		// (unlike the live SET handler, which preserves it). This is
		// how PERSIST's "SET" log line drops a deadline set by an
		// earlier EXPIRE line.
		e.ks.upsert(ent.key, ent.value, false, nil)
	case "DEL":
		e.ks.erase(ent.key)
	case "EXPIRE":
		if r, ok := e.ks.lookup(ent.key, e.now()); ok {
			deadline := e.now() + ent.relMS
			r.deadline = &deadline
		}
	}
}

// ---- Single-key writes ----

// Set implements SET k v, buffering into the open transaction if one
// exists, or applying directly to the keyspace and logging otherwise.
func (e *Engine) Set(key, value string) error {
	if e.tx.open {
		var carried *int64
		if r, ok := e.ks.lookup(key, e.now()); ok {
			carried = cloneDeadline(r.deadline)
		}
		e.tx.intents = append(e.tx.intents, intent{kind: intentSet, key: key, value: value, deadline: carried})
		return nil
	}
	e.ks.upsert(key, value, true, nil)
	return e.log.appendSet(key, value)
}

// Get implements GET k, returning (value, true) if present.
func (e *Engine) Get(key string) (string, bool) {
	if e.tx.open {
		if in, ok := e.tx.latestValue(key); ok {
			if in.kind == intentDel {
				return "", false
			}
			return in.value, true
		}
	}
	r, ok := e.ks.lookup(key, e.now())
	if !ok {
		return "", false
	}
	return r.value, true
}

// Del implements DEL k, returning true if a key was removed (or, while
// a transaction is open, optimistically buffered for removal).
func (e *Engine) Del(key string) (bool, error) {
	if e.tx.open {
		e.tx.intents = append(e.tx.intents, intent{kind: intentDel, key: key})
		return true, nil
	}
	if !e.ks.erase(key) {
		return false, nil
	}
	return true, e.log.appendDel(key)
}

// Exists implements EXISTS k.
func (e *Engine) Exists(key string) bool {
	if e.tx.open {
		if in, ok := e.tx.latestValue(key); ok {
			return in.kind == intentSet
		}
	}
	_, ok := e.ks.lookup(key, e.now())
	return ok
}

// MSet implements MSET k1 v1 k2 v2 ... as the sequential composition of
// Set over each pair; the caller is expected to have validated the
// even argument count before calling (spec: MSET fails wholesale on
// odd count, without any effect).
func (e *Engine) MSet(pairs []string) error {
	for i := 0; i < len(pairs); i += 2 {
		if err := e.Set(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// MGet implements MGET k1 k2 ... as the element-wise composition of Get.
func (e *Engine) MGet(keys []string) []struct {
	Value string
	Found bool
} {
	out := make([]struct {
		Value string
		Found bool
	}, len(keys))
	for i, k := range keys {
		v, ok := e.Get(k)
		out[i].Value, out[i].Found = v, ok
	}
	return out
}

// ---- Transactions ----

func (e *Engine) Begin() error {
	if !e.tx.begin() {
		return ErrTxnAlreadyOpen
	}
	return nil
}

func (e *Engine) Abort() error {
	if !e.tx.abort() {
		return ErrNoTxnOpen
	}
	return nil
}

// Commit walks the buffered intents in order, applying each to the
// keyspace and logging its committed effect, then returns to IDLE.
// There is no rollback on a partial I/O failure mid-walk: individual
// intent application is infallible in-memory, and a log append error
// surfaces as-is without undoing the mutation (spec §4.4).
func (e *Engine) Commit() error {
	if !e.tx.open {
		return ErrNoTxnOpen
	}
	intents := e.tx.intents
	e.tx.open = false
	e.tx.intents = nil

	for _, in := range intents {
		switch in.kind {
		case intentSet:
			e.ks.upsert(in.key, in.value, false, in.deadline)
			if err := e.log.appendSet(in.key, in.value); err != nil {
				return err
			}
		case intentDel:
			if e.ks.erase(in.key) {
				if err := e.log.appendDel(in.key); err != nil {
					return err
				}
			}
		case intentExpire:
			if r, ok := e.ks.lookup(in.key, e.now()); ok {
				deadline := e.now() + in.relMS
				r.deadline = &deadline
				if err := e.log.appendExpire(in.key, in.relMS); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ---- Expiration ----

// Expire implements EXPIRE k ms. A non-positive ms is a delete.
func (e *Engine) Expire(key string, relMS int64) (armed bool, err error) {
	if relMS <= 0 {
		deleted, err := e.Del(key)
		return deleted, err
	}

	if e.tx.open {
		present := false
		if in, ok := e.tx.latest(key); ok {
			switch in.kind {
			case intentSet:
				present = true
			case intentDel:
				present = false
			default: // latest intent is itself an EXPIRE: fall back to committed state
				_, present = e.ks.lookup(key, e.now())
			}
		} else {
			_, present = e.ks.lookup(key, e.now())
		}
		if !present {
			return false, nil
		}
		e.tx.intents = append(e.tx.intents, intent{kind: intentExpire, key: key, relMS: relMS})
		return true, nil
	}

	r, ok := e.ks.lookup(key, e.now())
	if !ok {
		return false, nil
	}
	deadline := e.now() + relMS
	r.deadline = &deadline
	return true, e.log.appendExpire(key, relMS)
}

// TTL implements TTL k: remaining ms, -1 if no deadline, -2 if absent.
func (e *Engine) TTL(key string) int64 {
	if e.tx.open {
		if in, ok := e.tx.latest(key); ok {
			switch in.kind {
			case intentDel:
				return -2
			case intentSet:
				return -1
			case intentExpire:
				// Observational, not load-bearing (spec §9 open question):
				// the reference implementation's formula for "time
				// remaining" on a buffered EXPIRE simplifies to the raw
				// relative argument, so that's what is reported here.
				return in.relMS
			}
		}
	}

	r, ok := e.ks.lookup(key, e.now())
	if !ok {
		return -2
	}
	if r.deadline == nil {
		return -1
	}
	return *r.deadline - e.now()
}

// Persist implements PERSIST k: clears a deadline if one exists.
func (e *Engine) Persist(key string) (bool, error) {
	if e.tx.open {
		hasTTL := false
		if in, ok := e.tx.latest(key); ok {
			switch in.kind {
			case intentSet:
				hasTTL = in.deadline != nil
			case intentExpire:
				hasTTL = true
			case intentDel:
				hasTTL = false
			}
		} else if r, ok := e.ks.lookup(key, e.now()); ok {
			hasTTL = r.deadline != nil
		}
		if !hasTTL {
			return false, nil
		}

		value, ok := e.currentBufferedValue(key)
		if !ok {
			return false, nil
		}
		e.tx.intents = append(e.tx.intents, intent{kind: intentSet, key: key, value: value, deadline: nil})
		return true, nil
	}

	r, ok := e.ks.lookup(key, e.now())
	if !ok || r.deadline == nil {
		return false, nil
	}
	r.deadline = nil
	return true, e.log.appendSet(key, r.value)
}

// currentBufferedValue recovers the value PERSIST should re-assert:
// the latest buffered SET on key, else the committed value if live.
func (e *Engine) currentBufferedValue(key string) (string, bool) {
	for i := len(e.tx.intents) - 1; i >= 0; i-- {
		if e.tx.intents[i].key == key && e.tx.intents[i].kind == intentSet {
			return e.tx.intents[i].value, true
		}
	}
	if r, ok := e.ks.lookup(key, e.now()); ok {
		return r.value, true
	}
	return "", false
}

// ---- Range ----

// Range implements RANGE lo hi: committed keys in [lo, hi], skipping
// expired ones, with the open transaction's DEL/SET intents overlaid.
// Keys that exist only in the buffer are not emitted (spec §9 — this
// matches the observable behavior of the source this spec describes).
func (e *Engine) Range(lo, hi string) []string {
	keys := e.ks.scanRange(lo, hi, e.now())
	if !e.tx.open {
		return keys
	}
	out := keys[:0:0]
	for _, k := range keys {
		if in, ok := e.tx.latest(k); ok && in.kind == intentDel {
			continue
		}
		out = append(out, k)
	}
	return out
}
