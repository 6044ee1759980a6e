package store

import "sort"

// keyspace holds records in ascending key order. find is a binary
// search (the idiomatic Go stand-in for the reference implementation's
// bisect-based lookup); upsert/erase keep the slice sorted in place.
type keyspace struct {
	recs []*record
}

// find returns the index of key and whether it was found. When not
// found, index is the position at which key would be inserted to keep
// recs sorted — callers that only want presence should check the bool.
func (ks *keyspace) find(key string) (int, bool) {
	i := sort.Search(len(ks.recs), func(i int) bool {
		return ks.recs[i].key >= key
	})
	if i < len(ks.recs) && ks.recs[i].key == key {
		return i, true
	}
	return i, false
}

// upsert inserts or updates key. When preserveDeadline is true the
// existing record's deadline (if any) is kept unchanged — this is the
// load-bearing rule from the data model: a plain SET of an existing key
// must not clear a prior expiration. When preserveDeadline is false,
// deadline replaces whatever was there (nil clears it).
func (ks *keyspace) upsert(key, value string, preserveDeadline bool, deadline *int64) {
	i, ok := ks.find(key)
	if ok {
		r := ks.recs[i]
		r.value = value
		if !preserveDeadline {
			r.deadline = cloneDeadline(deadline)
		}
		return
	}
	r := &record{key: key, value: value}
	if !preserveDeadline {
		r.deadline = cloneDeadline(deadline)
	}
	ks.recs = append(ks.recs, nil)
	copy(ks.recs[i+1:], ks.recs[i:])
	ks.recs[i] = r
}

// erase removes key if present and reports whether it was removed.
func (ks *keyspace) erase(key string) bool {
	i, ok := ks.find(key)
	if !ok {
		return false
	}
	ks.recs = append(ks.recs[:i], ks.recs[i+1:]...)
	return true
}

// lookup returns the live record for key at time nowMS, lazily evicting
// it first if its deadline has passed. This is the single choke point
// through which every read-observing operation must pass.
func (ks *keyspace) lookup(key string, nowMS int64) (*record, bool) {
	i, ok := ks.find(key)
	if !ok {
		return nil, false
	}
	r := ks.recs[i]
	if r.expiredAt(nowMS) {
		ks.recs = append(ks.recs[:i], ks.recs[i+1:]...)
		return nil, false
	}
	return r, true
}

// scanRange returns the live, in-order keys with lo <= key <= hi,
// treating an empty bound as open on that side. Expired records
// encountered along the way are evicted.
func (ks *keyspace) scanRange(lo, hi string, nowMS int64) []string {
	start := 0
	if lo != "" {
		start, _ = ks.find(lo)
	}
	end := len(ks.recs)
	if hi != "" {
		end = sort.Search(len(ks.recs), func(i int) bool {
			return ks.recs[i].key > hi
		})
	}

	var out []string
	var expired []int
	for idx := start; idx < end; idx++ {
		r := ks.recs[idx]
		if r.expiredAt(nowMS) {
			expired = append(expired, idx)
			continue
		}
		out = append(out, r.key)
	}
	for i := len(expired) - 1; i >= 0; i-- {
		idx := expired[i]
		ks.recs = append(ks.recs[:idx], ks.recs[idx+1:]...)
	}
	return out
}
