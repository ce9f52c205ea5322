package collections

import (
	"reflect"
	"sync"

	"estate-backend/internal/metrics"
)

// Phase is the lifecycle of an optimistic mutation.
type Phase int

const (
	PhaseOptimistic Phase = iota
	PhaseConfirmed
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseConfirmed:
		return "confirmed"
	case PhaseRolledBack:
		return "rolled_back"
	default:
		return "optimistic"
	}
}

// Optimistic is a local mutation applied ahead of its remote write.
type Optimistic struct {
	store     *Store
	entry     *entry
	delivered uint64
	touched   []touch

	mu     sync.Mutex
	phase  Phase
	reason error
}

// touch is one document the mutation changed. prior is nil when the mutation added it; prev and
// next are its neighbours before the change, used to put a removed document back in place.
type touch struct {
	id         string
	prior      Document
	index      int
	prev, next string
}

// Optimistic applies fn like Mutate and returns a handle to confirm or roll it back.
func (s *Store) Optimistic(name string, fn Updater) (*Optimistic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, ErrNotSubscribed
	}
	before := e.docs
	e.docs = fn(cloneDocs(e.docs))
	e.version++
	o := &Optimistic{store: s, entry: e, delivered: e.delivered, touched: diff(before, e.docs)}
	s.fanout(e)
	return o, nil
}

// diff lists the documents that differ between before and after, by id.
func diff(before, after []Document) []touch {
	afterByID := make(map[string]Document, len(after))
	for _, d := range after {
		afterByID[d.ID()] = d
	}
	var out []touch
	seen := make(map[string]bool, len(before))
	for i, d := range before {
		id := d.ID()
		seen[id] = true
		if a, ok := afterByID[id]; !ok || !reflect.DeepEqual(a, d) {
			tc := touch{id: id, prior: d, index: i}
			if i > 0 {
				tc.prev = before[i-1].ID()
			}
			if i+1 < len(before) {
				tc.next = before[i+1].ID()
			}
			out = append(out, tc)
		}
	}
	for _, d := range after {
		if !seen[d.ID()] {
			out = append(out, touch{id: d.ID()})
		}
	}
	return out
}

// revert puts every touched document of docs back to its prior copy. Other documents are kept.
func revert(docs []Document, touched []touch) []Document {
	out := cloneDocs(docs)
	for _, t := range touched {
		pos := indexOf(out, t.id)
		switch {
		case t.prior == nil && pos >= 0:
			out = append(out[:pos], out[pos+1:]...)
		case t.prior != nil && pos >= 0:
			out[pos] = t.prior.Clone()
		case t.prior != nil:
			at := t.index
			if p := indexOf(out, t.prev); t.prev != "" && p >= 0 {
				at = p + 1
			} else if n := indexOf(out, t.next); t.next != "" && n >= 0 {
				at = n
			}
			if at > len(out) {
				at = len(out)
			}
			out = append(out[:at], append([]Document{t.prior.Clone()}, out[at:]...)...)
		}
	}
	return out
}

func indexOf(docs []Document, id string) int {
	for i, d := range docs {
		if d.ID() == id {
			return i
		}
	}
	return -1
}

// Phase returns the current phase.
func (o *Optimistic) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Reason returns the rollback cause, nil otherwise.
func (o *Optimistic) Reason() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reason
}

// Confirm marks the remote write as successful. The next snapshot stays authoritative.
func (o *Optimistic) Confirm() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseOptimistic {
		return
	}
	o.phase = PhaseConfirmed
	metrics.OptimisticOutcomes.WithLabelValues(o.entry.name, PhaseConfirmed.String()).Inc()
}

// Rollback marks the remote write as failed and restores the documents the mutation touched.
// Unrelated local mutations made since are kept. If the listener has delivered a snapshot since
// the optimistic write, that snapshot is authoritative and nothing is restored. It reports
// whether it restored.
func (o *Optimistic) Rollback(reason error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseOptimistic {
		return false
	}
	o.phase = PhaseRolledBack
	o.reason = reason
	metrics.OptimisticOutcomes.WithLabelValues(o.entry.name, PhaseRolledBack.String()).Inc()

	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()
	e := o.entry
	if e.closed || e.delivered != o.delivered {
		return false
	}
	e.docs = revert(e.docs, o.touched)
	e.version++
	s.fanout(e)
	return true
}
