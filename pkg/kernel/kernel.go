// Package kernel turns distance fields into triangle meshes. Backends
// (currently sdfx marching cubes) sit behind the Kernel interface so the
// rest of the system does not depend on a particular mesher.
package kernel

import "github.com/chazu/sdfmarch/pkg/field"

// Solid is a field restricted to a finite box, ready for meshing.
type Solid interface {
	// BoundingBox returns the axis-aligned box the mesher samples.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract meshing interface.
type Kernel interface {
	// Solid wraps n over bounds. n is queried concurrently by some
	// backends, so it must not be re-evaluated while a mesh is built.
	Solid(n field.Node, bounds Bounds) (Solid, error)

	// ToMesh samples s on a uniform grid with cells cells along the
	// longest box edge.
	ToMesh(s Solid, cells int) (*Mesh, error)

	// SaveSTL writes m to path as an STL file.
	SaveSTL(path string, m *Mesh) error
}
