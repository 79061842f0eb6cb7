// Package tessellate walks a scene and produces triangle meshes using a
// geometry kernel. One mesh is produced per root.
package tessellate

import (
	"fmt"

	"github.com/chazu/sdfmarch/pkg/kernel"
	"github.com/chazu/sdfmarch/pkg/scene"
)

// DefaultPadding is added around each estimated box so the surface never
// touches the edge of the grid.
const DefaultPadding = 0.05

// Options controls a tessellation pass.
type Options struct {
	// Cells is the grid resolution along the longest box edge. Zero uses
	// the kernel default.
	Cells int
	// Time is the animation time the scene is evaluated at.
	Time float64
	// Bounds overrides the estimated box for every root.
	Bounds *kernel.Bounds
	// Padding grows estimated boxes. Negative values use DefaultPadding.
	Padding float64
}

// Tessellate produces one triangle mesh per scene root using the provided
// geometry kernel. The scene is cloned before evaluation and is never
// mutated.
func Tessellate(sc *scene.Scene, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if sc == nil {
		return nil, nil
	}
	if opts.Padding < 0 {
		opts.Padding = DefaultPadding
	}

	frame := sc.Clone()
	frame.Evaluate(opts.Time)

	meshes := make([]*kernel.Mesh, 0, len(frame.Roots))
	for _, root := range frame.Roots {
		mesh, err := tessellateRoot(frame, k, root, opts)
		if err != nil {
			return nil, fmt.Errorf("tessellate: root %s: %w", root.Name, err)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func tessellateRoot(sc *scene.Scene, k kernel.Kernel, root scene.Root, opts Options) (*kernel.Mesh, error) {
	var bounds kernel.Bounds
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	} else {
		b, err := kernel.EstimateBounds(root.Node, sc.Params, opts.Time)
		if err != nil {
			return nil, err
		}
		bounds = b.Pad(opts.Padding)
	}

	solid, err := k.Solid(root.Node, bounds)
	if err != nil {
		return nil, err
	}
	mesh, err := k.ToMesh(solid, opts.Cells)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed: %w", err)
	}
	mesh.Name = root.Name
	return mesh, nil
}
