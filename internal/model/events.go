package model

// EventKind identifies a mutation notification.
type EventKind int

const (
	BeforeAppend EventKind = iota + 1
	Append
	BeforeInsert
	Insert
	BeforeRemove
	Remove
	BeforeMove
	Move
	BeforePropertyChange
	PropertyChange
	BeforeCreate
	Create
	Reconfigure
)

var eventNames = map[EventKind]string{
	BeforeAppend:         "beforeNodeAppend",
	Append:               "nodeAppend",
	BeforeInsert:         "beforeNodeInsert",
	Insert:               "nodeInsert",
	BeforeRemove:         "beforeNodeRemove",
	Remove:               "nodeRemove",
	BeforeMove:           "beforeNodeMove",
	Move:                 "nodeMove",
	BeforePropertyChange: "beforePropertyChanged",
	PropertyChange:       "propertyChanged",
	BeforeCreate:         "beforeNodeCreated",
	Create:               "nodeCreated",
	Reconfigure:          "nodeReconfigure",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return "unknown"
}

// Cancellable reports whether observers may veto the event.
// The created event is cancellable as it precedes attachment.
func (k EventKind) Cancellable() bool {
	switch k {
	case BeforeAppend, BeforeInsert, BeforeRemove, BeforeMove, BeforePropertyChange, BeforeCreate, Create:
		return true
	}
	return false
}

// Event carries the arguments of one notification. Fields not relevant to
// the kind are zero.
type Event struct {
	Kind EventKind
	// Node is the subject: the child for structural events, the owner for
	// property and reconfigure events.
	Node *Node
	// Parent is the (new) parent for structural events.
	Parent *Node
	// OldParent is set for moves.
	OldParent *Node
	// Ref is the reference sibling of an insert.
	Ref *Node
	// Index is the child position the event refers to.
	Index int
	// Tag is the requested tag of a BeforeCreate, when Node is not built yet.
	Tag string
	// Property is the changed property name; api.ContentKey for content.
	Property string
	Value    any
	OldValue any
	// Destroy is set on removals that destroy the removed subtree.
	Destroy bool
}

// Observer receives events synchronously. Returning false from a cancellable
// event aborts the pending mutation; the result is ignored otherwise.
type Observer func(ev *Event) bool

type subscription struct {
	id int
	fn Observer
}

// Sink is an ordered list of observers. Observers run in subscription order
// and the first false result stops delivery of a cancellable event.
type Sink struct {
	subs      []subscription
	nextID    int
	suspended int
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Subscribe appends fn and returns a function removing it.
func (s *Sink) Subscribe(fn Observer) (cancel func()) {
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Suspend stops delivery until the matching Resume. Calls nest.
func (s *Sink) Suspend() { s.suspended++ }

// Resume re-enables delivery after Suspend.
func (s *Sink) Resume() {
	if s.suspended > 0 {
		s.suspended--
	}
}

// Suspended reports whether delivery is currently off.
func (s *Sink) Suspended() bool { return s.suspended > 0 }

// Fire delivers ev and reports whether the mutation may continue.
// The observer list is snapshotted so observers may subscribe or cancel
// while an event is being delivered.
func (s *Sink) Fire(ev *Event) bool {
	if s.suspended > 0 || len(s.subs) == 0 {
		return true
	}
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	cancellable := ev.Kind.Cancellable()
	for _, sub := range subs {
		if !sub.fn(ev) && cancellable {
			return false
		}
	}
	return true
}
