package documents

import "slices"

// Bulk actions.
const (
	ActionDelete = "delete"
	ActionExport = "export"
	ActionRevoke = "revoke"
)

// removes reports whether a confirmed action takes items out of the list.
func removes(action string) bool {
	return action == ActionDelete || action == ActionRevoke
}

// Event is applied to a list State by Reduce.
type Event interface {
	event()
}

// Loaded replaces the cached items after a fetch.
type Loaded[T any] struct {
	Items []T
}

// Started marks IDs as having a remote call in flight.
type Started struct {
	Action string
	IDs    []string
}

// Succeeded carries the IDs the remote call confirmed.
type Succeeded struct {
	Action string
	IDs    []string
	Failed []BulkFailure
}

// Failed means the remote call failed as a whole; nothing changes.
type Failed struct {
	Action string
	Err    error
}

func (Loaded[T]) event() {}
func (Started) event()   {}
func (Succeeded) event() {}
func (Failed) event()    {}

// State is the locally cached view of a remote list.
type State[T any] struct {
	Items     []T
	Pending   []string
	LastError string
}

// Reduce applies ev to s and returns the new state. s is not modified.
// Only IDs confirmed by a Succeeded event are removed.
func Reduce[T any](s State[T], id func(T) string, ev Event) State[T] {
	next := State[T]{
		Items:     s.Items,
		Pending:   s.Pending,
		LastError: s.LastError,
	}
	switch e := ev.(type) {
	case Loaded[T]:
		next.Items = slices.Clone(e.Items)
		next.Pending = nil
		next.LastError = ""
	case Started:
		next.Pending = slices.Clone(e.IDs)
		next.LastError = ""
	case Succeeded:
		next.Pending = nil
		if removes(e.Action) && len(e.IDs) > 0 {
			confirmed := make(map[string]struct{}, len(e.IDs))
			for _, cid := range e.IDs {
				confirmed[cid] = struct{}{}
			}
			next.Items = slices.DeleteFunc(slices.Clone(s.Items), func(item T) bool {
				_, gone := confirmed[id(item)]
				return gone
			})
		}
		if len(e.Failed) > 0 {
			next.LastError = e.Failed[0].Error
		}
	case Failed:
		next.Pending = nil
		if e.Err != nil {
			next.LastError = e.Err.Error()
		}
	}
	return next
}
