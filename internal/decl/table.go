package decl

import (
	"encoding/json"
	"iter"

	"github.com/emirpasic/gods/maps/treemap"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Cloner is implemented by every declaration payload.
type Cloner[T any] interface {
	Clone() T
}

// Table maps declaration names to payloads. Keys are unique and iterate in
// lexicographic order. A Table is read-only once built.
type Table[T any] struct {
	m *treemap.Map
}

// NewTable canonicalizes one raw sequence: entries are inserted in order and
// a repeated name overwrites the earlier payload, so the last occurrence wins.
func NewTable[T Cloner[T]](raw []RawDecl[T]) *Table[T] {
	t := &Table[T]{m: treemap.NewWithStringComparator()}
	for _, r := range raw {
		t.m.Put(r.Name, r.Decl.Clone())
	}
	return t
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	if t == nil || t.m == nil {
		return 0
	}
	return t.m.Size()
}

// Get returns the payload stored under name.
func (t *Table[T]) Get(name string) (T, bool) {
	var zero T
	if t == nil || t.m == nil {
		return zero, false
	}
	v, ok := t.m.Get(name)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Keys returns the names in ascending order.
func (t *Table[T]) Keys() []string {
	keys := make([]string, 0, t.Len())
	for name := range t.All() {
		keys = append(keys, name)
	}
	return keys
}

// All yields (name, payload) pairs in ascending name order.
func (t *Table[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		if t == nil || t.m == nil {
			return
		}
		it := t.m.Iterator()
		for it.Next() {
			if !yield(it.Key().(string), it.Value().(T)) {
				return
			}
		}
	}
}

// MarshalJSON encodes the table as a JSON object with keys in table order.
func (t *Table[T]) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, T]()
	for name, d := range t.All() {
		om.Set(name, d)
	}
	return json.Marshal(om)
}
