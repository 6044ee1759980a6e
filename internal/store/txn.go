package store

// intentKind tags a buffered write inside an open transaction.
type intentKind int

const (
	intentSet intentKind = iota
	intentDel
	intentExpire
)

// intent is one buffered write. Exactly one of the value fields is
// meaningful, selected by kind:
//   - intentSet: value and deadline (the deadline the key had at the
//     moment the SET was buffered, carried so commit preserves it)
//   - intentDel: key only
//   - intentExpire: relMS, the relative-millisecond argument, so the
//     absolute deadline is computed at commit time
type intent struct {
	kind     intentKind
	key      string
	value    string
	deadline *int64
	relMS    int64
}

// txn is the single pending sequence of write intents overlaid on the
// keyspace while a transaction is open. At most one exists at a time.
type txn struct {
	open    bool
	intents []intent
}

func (t *txn) begin() bool {
	if t.open {
		return false
	}
	t.open = true
	t.intents = nil
	return true
}

func (t *txn) abort() bool {
	if !t.open {
		return false
	}
	t.open = false
	t.intents = nil
	return true
}

// latest scans the buffer in reverse order for the most recent intent
// touching key, regardless of kind. TTL and the presence checks in
// EXPIRE/PERSIST use this: an EXPIRE intent is itself a meaningful
// "latest write" for those.
func (t *txn) latest(key string) (intent, bool) {
	for i := len(t.intents) - 1; i >= 0; i-- {
		if t.intents[i].key == key {
			return t.intents[i], true
		}
	}
	return intent{}, false
}

// latestValue scans in reverse for the most recent SET or DEL
// intent touching key, skipping over EXPIRE intents on the same key
// rather than stopping at them. This matches the reference
// implementation's GET/EXISTS lookup, which only ever inspects SET and
// DEL entries when reading a value — an EXPIRE intent changes a
// deadline, not a value, so it is transparent to value reads.
func (t *txn) latestValue(key string) (intent, bool) {
	for i := len(t.intents) - 1; i >= 0; i-- {
		in := t.intents[i]
		if in.key != key {
			continue
		}
		if in.kind == intentSet || in.kind == intentDel {
			return in, true
		}
	}
	return intent{}, false
}
