package model

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/viewdef/api"
	"github.com/rs/zerolog"
)

// NodeID is the arena index of a node. Zero means "no node".
type NodeID uint32

// Tree is the arena owning every node of one document, attached or detached.
// Parent, child and sibling links are stored as NodeIDs into the arena.
// A Tree has a single owner and is not safe for concurrent use.
type Tree struct {
	nodes  map[NodeID]*Node
	nextID NodeID

	// tags indexes live node ids by tag.
	tags map[string]*roaring.Bitmap

	sink      *Sink
	resolver  Resolver
	templates TemplateProvider
	log       zerolog.Logger

	rejected []error
}

// Option configures a Tree.
type Option func(*Tree)

// WithSink routes mutation events to s.
func WithSink(s *Sink) Option {
	return func(t *Tree) { t.sink = s }
}

// WithResolver sets the variant resolver used by CreateNode.
func WithResolver(r Resolver) Option {
	return func(t *Tree) { t.resolver = r }
}

// WithTemplates sets the structure template provider used by roots.
func WithTemplates(p TemplateProvider) Option {
	return func(t *Tree) { t.templates = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tree) { t.log = l }
}

// NewTree returns an empty arena.
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		nodes: make(map[NodeID]*Node),
		tags:  make(map[string]*roaring.Bitmap),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.sink == nil {
		t.sink = NewSink()
	}
	if t.resolver == nil {
		t.resolver = NewRegistry()
	}
	return t
}

// Sink returns the event sink of the tree.
func (t *Tree) Sink() *Sink { return t.sink }

// Resolver returns the variant resolver.
func (t *Tree) Resolver() Resolver { return t.resolver }

// Logger returns the tree's logger.
func (t *Tree) Logger() zerolog.Logger { return t.log }

// Suspend stops event delivery until Resume.
func (t *Tree) Suspend() { t.sink.Suspend() }

// Resume re-enables event delivery.
func (t *Tree) Resume() { t.sink.Resume() }

// Len returns the number of live nodes, attached or detached.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the live node with the given arena id.
func (t *Tree) Node(id NodeID) *Node { return t.nodes[id] }

// NodesByTag returns the live nodes carrying tag, in creation order.
func (t *Tree) NodesByTag(tag string) []*Node {
	bm, ok := t.tags[tag]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if n := t.nodes[NodeID(it.Next())]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Rejected drains the admission and construction failures recorded while
// applying definition fragments.
func (t *Tree) Rejected() []error {
	out := t.rejected
	t.rejected = nil
	return out
}

// RejectedCount returns the number of recorded failures without draining them.
func (t *Tree) RejectedCount() int { return len(t.rejected) }

// NewNode builds a detached node from an explicit variant.
func (t *Tree) NewNode(spec api.VariantSpec, modelType string) (*Node, error) {
	if spec.Tag == "" {
		return nil, malformed("missing tag")
	}
	n := &Node{
		tree:      t,
		tag:       spec.Tag,
		modelType: modelType,
		propIndex: make(map[string]int, len(spec.Properties)),
	}
	for _, ps := range spec.Properties {
		if ps.Name == "" {
			return nil, malformed("%s: property without name", spec.Tag)
		}
		if _, dup := n.propIndex[ps.Name]; dup {
			return nil, malformed("%s: duplicate property %q", spec.Tag, ps.Name)
		}
		n.propIndex[ps.Name] = len(n.props)
		n.props = append(n.props, NewProperty(ps))
	}
	if spec.Content != nil {
		cs := *spec.Content
		cs.Name = api.ContentKey
		n.content = NewProperty(cs)
	}
	slots, err := checkSlots(spec.Tag, spec.Slots)
	if err != nil {
		return nil, err
	}
	n.slots = slots
	t.register(n)
	return n, nil
}

// NewNodeFor builds a detached node for tag using the tree's resolver.
func (t *Tree) NewNodeFor(modelType, tag string) (*Node, error) {
	if tag == "" {
		return nil, malformed("missing tag")
	}
	spec := t.resolver.Resolve(modelType, tag)
	spec.Tag = tag
	return t.NewNode(spec, modelType)
}

func checkSlots(owner string, slots []api.Slot) ([]api.Slot, error) {
	out := make([]api.Slot, 0, len(slots))
	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		if s.Tag == "" {
			return nil, malformed("%s: slot without tag", owner)
		}
		if seen[s.Tag] {
			return nil, malformed("%s: duplicate slot %q", owner, s.Tag)
		}
		seen[s.Tag] = true
		out = append(out, s)
	}
	return out, nil
}

func (t *Tree) register(n *Node) {
	t.nextID++
	n.nid = t.nextID
	if n.id == "" {
		n.id = fmt.Sprintf("%s-%d", n.tag, n.nid)
	}
	t.nodes[n.nid] = n
	bm, ok := t.tags[n.tag]
	if !ok {
		bm = roaring.New()
		t.tags[n.tag] = bm
	}
	bm.Add(uint32(n.nid))
}

// release drops every id in ids from the arena.
func (t *Tree) release(ids *roaring.Bitmap) {
	it := ids.Iterator()
	for it.HasNext() {
		id := NodeID(it.Next())
		n, ok := t.nodes[id]
		if !ok {
			continue
		}
		if bm, ok := t.tags[n.tag]; ok {
			bm.Remove(uint32(id))
			if bm.IsEmpty() {
				delete(t.tags, n.tag)
			}
		}
		delete(t.nodes, id)
	}
}

func (t *Tree) fire(ev *Event) bool {
	return t.sink.Fire(ev)
}

func (t *Tree) reject(err error) {
	t.rejected = append(t.rejected, err)
	t.log.Warn().Err(err).Msg("definition fragment rejected")
}
