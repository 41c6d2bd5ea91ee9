// Package memory is an in-process pasteboard server. It follows the same
// ownership rules as the AppKit one and counts every object it hands out, so
// leaks and over-releases show up in tests instead of in the field.
package memory

import (
	"sync"
	"unicode/utf8"

	"github.com/labi-le/pasteboard/pkg/mime"
	"github.com/labi-le/pasteboard/pkg/pasteboard/native"
)

var (
	_ native.Driver = &Server{}
	_ native.Board  = &board{}
	_ native.Item   = &item{}
)

// Representation is one (type identifier, payload) pair of an item.
type Representation struct {
	Type string
	Data []byte
}

// Server holds the pasteboard contents shared by every handle built on it.
type Server struct {
	mu sync.Mutex

	items   [][]Representation
	changes int

	live      int
	boardRefs int

	unavailable  bool
	nullReads    bool
	rejectWrites bool
	rejectSets   bool

	board *board
}

func New() *Server {
	s := new(Server)
	s.board = &board{srv: s}
	return s
}

func (s *Server) GeneralPasteboard() (native.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return nil, false
	}
	s.boardRefs++
	return s.board, true
}

// SetUnavailable makes GeneralPasteboard return nothing.
func (s *Server) SetUnavailable(v bool) { s.locked(func() { s.unavailable = v }) }

// SetNullReads makes ReadObjects behave as if the server returned nil.
func (s *Server) SetNullReads(v bool) { s.locked(func() { s.nullReads = v }) }

// SetRejectWrites makes WriteObjects report failure.
func (s *Server) SetRejectWrites(v bool) { s.locked(func() { s.rejectWrites = v }) }

// SetRejectSets makes Item.SetData report failure.
func (s *Server) SetRejectSets(v bool) { s.locked(func() { s.rejectSets = v }) }

// Live is the number of objects handed out and not yet released.
// The board itself is not counted.
func (s *Server) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// BoardRefs is the number of outstanding references to the board.
func (s *Server) BoardRefs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardRefs
}

// ChangeCount grows on every clear and every accepted write.
func (s *Server) ChangeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changes
}

// Put replaces the contents with a single item, the way another
// application would.
func (s *Server) Put(reps ...Representation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = [][]Representation{cloneReps(reps)}
	s.changes += 2
}

// Clear empties the board without going through a handle.
func (s *Server) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.changes++
}

// Items returns a copy of the current contents.
func (s *Server) Items() [][]Representation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]Representation, 0, len(s.items))
	for _, reps := range s.items {
		out = append(out, cloneReps(reps))
	}
	return out
}

func (s *Server) locked(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// alloc must be called with s.mu held.
func (s *Server) alloc(kind string, free func()) ref {
	s.live++
	return ref{srv: s, kind: kind, refs: 1, free: free}
}

type ref struct {
	srv  *Server
	kind string
	refs int
	free func()
}

func (r *ref) Retain() {
	r.srv.mu.Lock()
	defer r.srv.mu.Unlock()

	if r.refs <= 0 {
		panic("memory: retain of released " + r.kind)
	}
	r.refs++
}

func (r *ref) Release() {
	r.srv.mu.Lock()
	if r.refs <= 0 {
		r.srv.mu.Unlock()
		panic("memory: over-release of " + r.kind)
	}
	r.refs--
	dead := r.refs == 0
	if dead {
		r.srv.live--
	}
	r.srv.mu.Unlock()

	if dead && r.free != nil {
		r.free()
	}
}

type board struct {
	srv *Server
}

func (b *board) Retain() {
	b.srv.mu.Lock()
	defer b.srv.mu.Unlock()
	b.srv.boardRefs++
}

func (b *board) Release() {
	b.srv.mu.Lock()
	defer b.srv.mu.Unlock()

	if b.srv.boardRefs <= 0 {
		panic("memory: over-release of board")
	}
	b.srv.boardRefs--
}

// Scoped panics when the board is used without any outstanding reference.
func (b *board) Scoped(fn func() error) error {
	b.srv.mu.Lock()
	refs := b.srv.boardRefs
	b.srv.mu.Unlock()

	if refs <= 0 {
		panic("memory: board used after release")
	}
	return fn()
}

func (b *board) ClearContents() { b.srv.Clear() }

func (b *board) ReadObjects(classes ...native.Class) (native.Array, bool) {
	s := b.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nullReads {
		return nil, false
	}

	elems := make([]native.Object, 0, len(s.items))
	for _, reps := range s.items {
		if obj := s.coerce(reps, classes); obj != nil {
			elems = append(elems, obj)
		}
	}

	a := &array{elems: elems}
	a.ref = s.alloc("array", func() {
		for _, e := range elems {
			e.Release()
		}
	})
	return a, true
}

// coerce builds an object for the first class in classes the item can
// satisfy. Must be called with s.mu held.
func (s *Server) coerce(reps []Representation, classes []native.Class) native.Object {
	for _, class := range classes {
		switch class {
		case native.ClassItem:
			it := &item{reps: cloneReps(reps)}
			it.ref = s.alloc("item", nil)
			return it
		case native.ClassString:
			for _, r := range reps {
				if r.Type == mime.TypePlainText {
					o := &str{s: string(r.Data)}
					o.ref = s.alloc("string", nil)
					return o
				}
			}
		}
	}
	return nil
}

func (b *board) WriteObjects(objs ...native.Object) bool {
	s := b.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rejectWrites {
		return false
	}

	written := make([][]Representation, 0, len(objs))
	for _, obj := range objs {
		switch o := obj.(type) {
		case *str:
			written = append(written, []Representation{{Type: mime.TypePlainText, Data: []byte(o.s)}})
		case *item:
			written = append(written, cloneReps(o.reps))
		default:
			return false
		}
	}

	s.items = append(s.items, written...)
	s.changes++
	return true
}

func (b *board) NewString(v string) (native.String, bool) {
	if !utf8.ValidString(v) {
		return nil, false
	}

	b.srv.mu.Lock()
	defer b.srv.mu.Unlock()

	o := &str{s: v}
	o.ref = b.srv.alloc("string", nil)
	return o, true
}

func (b *board) NewData(v []byte) (native.Data, bool) {
	b.srv.mu.Lock()
	defer b.srv.mu.Unlock()

	o := &data{b: append([]byte(nil), v...)}
	o.ref = b.srv.alloc("data", nil)
	return o, true
}

func (b *board) NewItem() (native.Item, bool) {
	b.srv.mu.Lock()
	defer b.srv.mu.Unlock()

	o := new(item)
	o.ref = b.srv.alloc("item", nil)
	return o, true
}

type array struct {
	ref
	elems []native.Object
}

func (a *array) Len() int               { return len(a.elems) }
func (a *array) At(i int) native.Object { return a.elems[i] }

type str struct {
	ref
	s string
}

func (o *str) String() string { return o.s }

type data struct {
	ref
	b []byte
}

func (o *data) Bytes() []byte { return append([]byte(nil), o.b...) }

type item struct {
	ref
	reps []Representation
}

func (o *item) SetData(d native.Data, typ string) bool {
	s := o.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := d.(*data)
	if !ok || s.rejectSets {
		return false
	}

	payload := append([]byte(nil), src.b...)
	for i := range o.reps {
		if o.reps[i].Type == typ {
			o.reps[i].Data = payload
			return true
		}
	}
	o.reps = append(o.reps, Representation{Type: typ, Data: payload})
	return true
}

func (o *item) DataForType(typ string) (native.Data, bool) {
	s := o.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range o.reps {
		if r.Type == typ {
			d := &data{b: append([]byte(nil), r.Data...)}
			d.ref = s.alloc("data", nil)
			return d, true
		}
	}
	return nil, false
}

func (o *item) Types() ([]string, bool) {
	o.srv.mu.Lock()
	defer o.srv.mu.Unlock()

	types := make([]string, 0, len(o.reps))
	for _, r := range o.reps {
		types = append(types, r.Type)
	}
	return types, true
}

func cloneReps(reps []Representation) []Representation {
	out := make([]Representation, len(reps))
	for i, r := range reps {
		out[i] = Representation{Type: r.Type, Data: append([]byte(nil), r.Data...)}
	}
	return out
}
