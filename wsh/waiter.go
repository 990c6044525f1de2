package wsh

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xtaci/wsh/proto"
)

// waiter is a short-lived subscription for the next control record whose
// opcode is in accept. It is consumed by the first incoming record
// matching accept, and removed from its queue before its timer fires a
// rejection.
type waiter struct {
	accept map[proto.Opcode]bool
	label  string
	resume chan waiterResult
	timer  *time.Timer
}

type waiterResult struct {
	rec proto.Record
	err error
}

// waiterTable stores waiters keyed either by a single opcode or by a
// composite key built from a multi-opcode set, each an ordered FIFO queue.
type waiterTable struct {
	mu     sync.Mutex
	single map[proto.Opcode][]*waiter
	multi  map[string][]*waiter
}

func newWaiterTable() *waiterTable {
	return &waiterTable{
		single: make(map[proto.Opcode][]*waiter),
		multi:  make(map[string][]*waiter),
	}
}

// multiKey builds the synthetic composite key for a multi-opcode wait,
// order-independent so waitFor(A,B) and waitFor(B,A) share a queue.
func multiKey(opcodes []proto.Opcode) string {
	names := make([]string, len(opcodes))
	for i, op := range opcodes {
		names[i] = string(rune(op))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// register adds a new waiter for the given opcode set with a timeout. The
// returned waiter's resume channel receives exactly one waiterResult: either the accepted
// record, or a TimeoutError if no matching record arrives first.
func (t *waiterTable) register(label string, opcodes []proto.Opcode, timeout time.Duration) *waiter {
	accept := make(map[proto.Opcode]bool, len(opcodes))
	for _, op := range opcodes {
		accept[op] = true
	}
	w := &waiter{accept: accept, label: label, resume: make(chan waiterResult, 1)}

	t.mu.Lock()
	if len(opcodes) == 1 {
		t.single[opcodes[0]] = append(t.single[opcodes[0]], w)
	} else {
		key := multiKey(opcodes)
		t.multi[key] = append(t.multi[key], w)
	}
	t.mu.Unlock()

	w.timer = time.AfterFunc(timeout, func() {
		if t.remove(w, opcodes) {
			w.resume <- waiterResult{err: &TimeoutError{Label: label, Opcodes: opcodes}}
		}
	})
	return w
}

// remove deletes w from its queue(s) if still present, returning true if it
// was found (i.e. had not already been resolved by dispatch).
func (t *waiterTable) remove(w *waiter, opcodes []proto.Opcode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	found := false
	if len(opcodes) == 1 {
		q := t.single[opcodes[0]]
		for i, cand := range q {
			if cand == w {
				t.single[opcodes[0]] = append(q[:i], q[i+1:]...)
				found = true
				break
			}
		}
	} else {
		key := multiKey(opcodes)
		q := t.multi[key]
		for i, cand := range q {
			if cand == w {
				t.multi[key] = append(q[:i], q[i+1:]...)
				found = true
				break
			}
		}
	}
	return found
}

// dispatch offers rec to waiters in priority order: exact-opcode waiters
// drain FIFO before multi-opcode waiters. Multi-opcode waiters registered
// with the same opcode set drain FIFO with first-match; between waiters of
// different opcode sets that both accept rec, which one gets it is not
// defined. It returns true if some waiter accepted the record.
func (t *waiterTable) dispatch(rec proto.Record) bool {
	op := rec.Opcode()

	t.mu.Lock()
	var single *waiter
	if q := t.single[op]; len(q) > 0 {
		single = q[0]
		t.single[op] = q[1:]
	}
	t.mu.Unlock()
	if single != nil {
		single.timer.Stop()
		single.resume <- waiterResult{rec: rec}
		return true
	}

	t.mu.Lock()
	var matched *waiter
	var matchedKey string
	for key, q := range t.multi {
		for i, w := range q {
			if w.accept[op] {
				matched = w
				matchedKey = key
				t.multi[key] = append(q[:i], q[i+1:]...)
				break
			}
		}
		if matched != nil {
			break
		}
	}
	t.mu.Unlock()
	if matched != nil {
		_ = matchedKey
		matched.timer.Stop()
		matched.resume <- waiterResult{rec: rec}
		return true
	}
	return false
}

// rejectAll rejects every pending waiter exactly once with a single
// terminal error.
func (t *waiterTable) rejectAll(err error) {
	t.mu.Lock()
	var all []*waiter
	for _, q := range t.single {
		all = append(all, q...)
	}
	for _, q := range t.multi {
		all = append(all, q...)
	}
	t.single = make(map[proto.Opcode][]*waiter)
	t.multi = make(map[string][]*waiter)
	t.mu.Unlock()

	for _, w := range all {
		w.timer.Stop()
		w.resume <- waiterResult{err: err}
	}
}
