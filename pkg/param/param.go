// Package param resolves animated scalar attributes for one instant in time.
//
// Scene nodes never share mutable cells. Each animated attribute is a Scalar
// carrying a stable ID plus a default value; a Source maps IDs to immutable
// Tracks. Nodes copy the resolved value into their own fields during
// Evaluate, so a Table can be read by any number of goroutines once built.
package param

import (
	"fmt"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ID is a stable handle for an animated attribute.
type ID string

// Track produces the value of one attribute at time t (seconds).
// Implementations must be pure functions of t.
type Track interface {
	At(t float64) float64
}

// Source looks up the track bound to an ID.
type Source interface {
	Track(id ID) (Track, bool)
}

// Table is the default Source: a map from IDs to tracks.
// It is not safe to call Set concurrently with Track; build it first.
type Table struct {
	tracks map[ID]Track
	next   uint64
}

// NewTable returns an empty track table.
func NewTable() *Table {
	return &Table{tracks: make(map[ID]Track)}
}

// Set binds a track to an ID, replacing any previous binding.
func (tb *Table) Set(id ID, tr Track) {
	tb.tracks[id] = tr
}

// Add binds a track to a freshly generated ID and returns it.
func (tb *Table) Add(tr Track) ID {
	for {
		tb.next++
		id := ID(fmt.Sprintf("p%d", tb.next))
		if _, taken := tb.tracks[id]; !taken {
			tb.tracks[id] = tr
			return id
		}
	}
}

// Track implements Source. A nil table has no tracks.
func (tb *Table) Track(id ID) (Track, bool) {
	if tb == nil {
		return nil, false
	}
	tr, ok := tb.tracks[id]
	return tr, ok
}

// Len returns the number of bound tracks.
func (tb *Table) Len() int {
	if tb == nil {
		return 0
	}
	return len(tb.tracks)
}

// IDs returns the bound IDs in sorted order.
func (tb *Table) IDs() []ID {
	if tb == nil {
		return nil
	}
	ids := make([]ID, 0, len(tb.tracks))
	for id := range tb.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Scalar is an attribute that may be animated. An empty ID, a nil source, or
// an unbound ID all resolve to Default.
type Scalar struct {
	ID      ID      `json:"id,omitempty"`
	Default float64 `json:"default"`
}

// Const returns a Scalar that always resolves to v.
func Const(v float64) Scalar {
	return Scalar{Default: v}
}

// Bind returns a Scalar driven by the track bound to id.
func Bind(id ID, def float64) Scalar {
	return Scalar{ID: id, Default: def}
}

// Animated reports whether the scalar refers to a track.
func (s Scalar) Animated() bool {
	return s.ID != ""
}

// Resolve returns the value of the scalar at time t.
func (s Scalar) Resolve(src Source, t float64) float64 {
	if s.ID == "" || src == nil {
		return s.Default
	}
	tr, ok := src.Track(s.ID)
	if !ok || tr == nil {
		return s.Default
	}
	return tr.At(t)
}

// Vec3 is a triple of scalars, used for positions, rotations and scales.
type Vec3 [3]Scalar

// ConstVec3 returns a Vec3 of constants.
func ConstVec3(x, y, z float64) Vec3 {
	return Vec3{Const(x), Const(y), Const(z)}
}

// Resolve returns the vector value at time t.
func (v Vec3) Resolve(src Source, t float64) v3.Vec {
	return v3.Vec{
		X: v[0].Resolve(src, t),
		Y: v[1].Resolve(src, t),
		Z: v[2].Resolve(src, t),
	}
}
