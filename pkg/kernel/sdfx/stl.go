package sdfx

import (
	"fmt"

	"github.com/chazu/sdfmarch/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SaveSTL writes m as a binary STL file through the sdfx writer.
func (k *SdfxKernel) SaveSTL(path string, m *kernel.Mesh) error {
	if m == nil || m.TriangleCount() == 0 {
		return fmt.Errorf("kernel: %s: mesh has no triangles", path)
	}
	if err := render.SaveSTL(path, triangles(m)); err != nil {
		return fmt.Errorf("kernel: save %s: %w", path, err)
	}
	return nil
}

// triangles turns m back into the sdfx triangle list ToMesh flattened.
func triangles(m *kernel.Mesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, m.TriangleCount())
	for i := range out {
		corners := m.Triangle(i)
		tri := &sdf.Triangle3{}
		for j, c := range corners {
			tri[j] = v3.Vec{X: float64(c[0]), Y: float64(c[1]), Z: float64(c[2])}
		}
		out[i] = tri
	}
	return out
}
