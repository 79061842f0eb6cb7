// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx marching cubes renderer.
package sdfx

import (
	"errors"
	"fmt"

	"github.com/chazu/sdfmarch/pkg/field"
	"github.com/chazu/sdfmarch/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*SdfxKernel)(nil)
	_ sdf.SDF3      = (*fieldSDF)(nil)
)

// DefaultMeshCells is the grid resolution along the longest box edge.
const DefaultMeshCells = 200

// farClamp replaces field.FarDistance so vertex interpolation stays finite.
const farClamp = 1e6

// ErrEmptyBounds is returned for a box with no volume.
var ErrEmptyBounds = errors.New("kernel: empty bounding box")

// fieldSDF exposes a field node as an sdf.SDF3 over a fixed box.
type fieldSDF struct {
	n   field.Node
	box sdf.Box3
}

func (f *fieldSDF) Evaluate(p v3.Vec) float64 {
	d := f.n.Query(p).Distance
	if d > farClamp {
		return farClamp
	}
	return d
}

func (f *fieldSDF) BoundingBox() sdf.Box3 {
	return f.box
}

// sdfxSolid wraps a fieldSDF to implement kernel.Solid.
type sdfxSolid struct {
	s *fieldSDF
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.box
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// Solid wraps n over bounds.
func (k *SdfxKernel) Solid(n field.Node, bounds kernel.Bounds) (kernel.Solid, error) {
	if n == nil {
		return nil, fmt.Errorf("kernel: nil field")
	}
	if bounds.Empty() {
		return nil, ErrEmptyBounds
	}
	box := sdf.Box3{
		Min: v3.Vec{X: bounds.Min[0], Y: bounds.Min[1], Z: bounds.Min[2]},
		Max: v3.Vec{X: bounds.Max[0], Y: bounds.Max[1], Z: bounds.Max[2]},
	}
	return &sdfxSolid{s: &fieldSDF{n: n, box: box}}, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid, cells int) (*kernel.Mesh, error) {
	solid, ok := s.(*sdfxSolid)
	if !ok {
		return nil, fmt.Errorf("kernel: solid %T was not built by the sdfx kernel", s)
	}
	if cells <= 0 {
		cells = DefaultMeshCells
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(solid.s, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
