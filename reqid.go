package sftp

import (
	"sort"
	"sync"
)

// reservedRequestIDs is the count of IDs reserved below the first ID ever
// issued by the allocator.
const reservedRequestIDs = 256

// request is a single outstanding SFTP request: an ID the allocator chose,
// and whether the send that published that ID has completed. Per-request
// caller context (the transfer engine's per-chunk bookkeeping) lives in the
// closure of whichever goroutine is blocked on resp, not in an untyped
// slot on the record itself.
type request struct {
	id         uint32
	registered bool

	// resp delivers the matched response (or a terminal error) to whichever
	// goroutine is waiting on this request. Only the session's receive loop
	// sends on resp; only the issuing goroutine receives from it.
	resp chan result
}

// requestTable is an order-statistic dictionary of outstanding requests,
// keyed by ID, that can both binary-search for a given ID and answer
// "what is the k-th record in ID order" in O(1) once the index k is known.
// It is implemented as a slice kept sorted by ID, which gives O(log n)
// search via binary search and O(1) indexed access; insert/delete are
// O(n) from the slice shift, a cost the allocator's correctness does not
// depend on bounding.
//
// Every method takes the table's own mutex, so that one Session may be
// driven by several goroutines issuing independent requests concurrently.
type requestTable struct {
	mu      sync.Mutex
	records []*request
}

// search returns the index at which id is, or would be, found in t.records.
func (t *requestTable) search(id uint32) int {
	return sort.Search(len(t.records), func(i int) bool {
		return t.records[i].id >= id
	})
}

// allocate returns a new *request holding the lowest unused ID, and inserts
// it into the table unregistered. The caller must mark it registered once
// the send publishing its ID has completed (see register).
func (t *requestTable) allocate() *request {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.records)

	// Binary search for the greatest index m such that records[m].id == m+reservedRequestIDs,
	// i.e. the largest dense prefix. Because IDs are strictly increasing and
	// the smallest possible value at index i is always reservedRequestIDs+i,
	// records[mid].id == mid+reservedRequestIDs being true implies the same
	// holds for every index before mid: the predicate is a monotonic
	// "true-prefix, then false" sequence, so standard boundary search applies.
	lo, hi, m := 0, n-1, -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if t.records[mid].id == uint32(mid)+reservedRequestIDs {
			m = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	id := uint32(m+1) + reservedRequestIDs

	r := &request{id: id, resp: make(chan result, 1)}

	// The new ID sorts immediately after the dense prefix [0..m], so it goes
	// at index m+1.
	at := m + 1
	t.records = append(t.records, nil)
	copy(t.records[at+1:], t.records[at:])
	t.records[at] = r

	return r
}

// register marks r as eligible to receive its response. Until this is
// called, an inbound packet referencing r.id is treated as a mismatch
// (see findRequest) — this closes the race where a send that never
// completed could have its ID matched to a reply for a since-cancelled
// operation.
func (t *requestTable) register(r *request) {
	t.mu.Lock()
	r.registered = true
	t.mu.Unlock()
}

// findRequest looks up the outstanding, registered request with the given
// ID, removes it from the table, and returns it. If no such request
// exists, or it exists but is not yet registered, it returns
// errRequestIDMismatch and leaves the table unmodified.
func (t *requestTable) findRequest(id uint32) (*request, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.search(id)
	if i >= len(t.records) || t.records[i].id != id {
		return nil, errRequestIDMismatch
	}

	r := t.records[i]
	if !r.registered {
		return nil, errRequestIDMismatch
	}

	t.records = append(t.records[:i], t.records[i+1:]...)

	return r, nil
}

// remove deletes r from the table without regard to whether it was ever
// matched to a response; used to release an abandoned request (e.g. one
// whose send failed, or whose caller gave up waiting).
func (t *requestTable) remove(r *request) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.search(r.id)
	if i < len(t.records) && t.records[i] == r {
		t.records = append(t.records[:i], t.records[i+1:]...)
	}
}

// len returns the number of outstanding requests.
func (t *requestTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.records)
}

// at returns the k-th outstanding request in ID order, for tests exercising
// the order-statistic property directly.
func (t *requestTable) at(k int) *request {
	t.mu.Lock()
	defer t.mu.Unlock()

	if k < 0 || k >= len(t.records) {
		return nil
	}
	return t.records[k]
}

// drain removes every outstanding request from the table and returns them,
// for use when the session's transport has died and every pending caller
// must be woken with a terminal error.
func (t *requestTable) drain() []*request {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.records
	t.records = nil
	return out
}
