// Package field implements the distance-field nodes that the solver marches
// through: analytic leaves (sphere, torus, cube), escape-time fractal
// estimators (mandelbulb, julia) and CSG composites over other nodes.
//
// Every node answers Query with a signed distance (negative inside), a trap
// vector used only for shading, and the material snapshot taken at the last
// Evaluate. Query never mutates a node, so once Evaluate has returned a tree
// may be queried from any number of goroutines.
package field

import (
	"math"

	"github.com/chazu/sdfmarch/pkg/param"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// FarDistance is reported when no surface can be located: empty worlds,
// degenerate transforms and fractal iterations that collapse to r = 0.
const FarDistance = math.MaxFloat64

// Kind enumerates the closed set of field node types.
type Kind int

const (
	KindSphere Kind = iota
	KindTorus
	KindCube
	KindMandelbulb
	KindJulia
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindTorus:
		return "torus"
	case KindCube:
		return "cube"
	case KindMandelbulb:
		return "mandelbulb"
	case KindJulia:
		return "julia"
	case KindComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Node is a distance field. Implementations are restricted to this package.
type Node interface {
	Kind() Kind
	// Query evaluates the field at p, given in the parent's frame.
	Query(p v3.Vec) Sample
	// Evaluate re-resolves every animated attribute of the subtree at t.
	// It must not run concurrently with Query on the same tree.
	Evaluate(src param.Source, t float64)
	// Clone returns an independent deep copy of the subtree.
	Clone() Node

	node() // marker method restricting implementations to this package
}

// Trap carries escape-time or orbit-trap data for shading.
type Trap [4]float64

// Sample is the result of a field query.
type Sample struct {
	Distance float64
	Trap     Trap
	Material Material
}

// Far returns a sample at FarDistance carrying m.
func Far(m Material) Sample {
	return Sample{Distance: FarDistance, Material: m}
}

// Material is a resolved shading snapshot.
type Material struct {
	Albedo   float64 `json:"albedo"`
	Specular float64 `json:"specular"`
	Diffuse  float64 `json:"diffuse"`
	Exponent float64 `json:"exponent"`
}

// DirectMaterial is used by leaves that define no shading.
func DirectMaterial() Material {
	return Material{Albedo: 1, Specular: 0, Diffuse: 1, Exponent: 0}
}

// BaseMaterial is a dull grey preset with a soft highlight.
func BaseMaterial() Material {
	return Material{Albedo: 0.18, Specular: 0.2, Diffuse: 0.8, Exponent: 10}
}

// MaterialParams is the animated form of a Material.
type MaterialParams struct {
	Albedo   param.Scalar
	Specular param.Scalar
	Diffuse  param.Scalar
	Exponent param.Scalar
}

// ConstMaterial wraps a fixed material.
func ConstMaterial(m Material) MaterialParams {
	return MaterialParams{
		Albedo:   param.Const(m.Albedo),
		Specular: param.Const(m.Specular),
		Diffuse:  param.Const(m.Diffuse),
		Exponent: param.Const(m.Exponent),
	}
}

// Resolve snapshots the material at t.
func (mp MaterialParams) Resolve(src param.Source, t float64) Material {
	return Material{
		Albedo:   mp.Albedo.Resolve(src, t),
		Specular: mp.Specular.Resolve(src, t),
		Diffuse:  mp.Diffuse.Resolve(src, t),
		Exponent: mp.Exponent.Resolve(src, t),
	}
}

func mix(a, b, h float64) float64 {
	return a*(1-h) + b*h
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
