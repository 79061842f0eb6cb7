package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/sdfmarch/pkg/light"
	"github.com/chazu/sdfmarch/pkg/solver"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mode selects how a hit is turned into a colour.
type Mode int

const (
	ModeNormal     Mode = iota // surface normal mapped to RGB
	ModeColor                  // flat colour on hit
	ModeSteps                  // march step count as a grey ramp
	ModeTrap                   // fractal trap data as colour
	ModeLit                    // diffuse and specular lighting with shadows
	ModeVolumetric             // ModeLit plus light scattered along the ray
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeColor:
		return "color"
	case ModeSteps:
		return "steps"
	case ModeTrap:
		return "trap"
	case ModeLit:
		return "lit"
	case ModeVolumetric:
		return "volumetric"
	default:
		return "unknown"
	}
}

// Lit reports whether the mode traces shadow rays.
func (m Mode) Lit() bool {
	return m == ModeLit || m == ModeVolumetric
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for m := ModeNormal; m <= ModeVolumetric; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("render: unknown shading mode %q", s)
}

// Shading configures the colour pass.
type Shading struct {
	Mode       Mode
	Color      [3]float64 // surface base colour
	Background [3]float64
	Ambient    [3]float64
	Lights     []light.Light
	// VolumeDensity scales the light gathered along the ray in volumetric mode.
	VolumeDensity float64
}

// DefaultShading renders normals on black.
func DefaultShading() Shading {
	return Shading{
		Mode:          ModeNormal,
		Color:         [3]float64{1, 1, 1},
		Ambient:       [3]float64{0.05, 0.05, 0.05},
		VolumeDensity: 0.01,
	}
}

// shader computes pixel colours. It is read-only and shared by workers.
type shader struct {
	Shading
	shadow    ShadowTracer
	bias      float64
	stepLimit float64
}

func (s *shader) miss() [3]float64 {
	return s.Background
}

func (s *shader) surface(ray solver.Ray, hit solver.Intersection) [3]float64 {
	switch s.Mode {
	case ModeColor:
		return s.Color
	case ModeSteps:
		v := float64(hit.Steps) / s.stepLimit
		return [3]float64{v, v, v}
	case ModeTrap:
		return trapColor(hit)
	case ModeLit, ModeVolumetric:
		return s.lit(ray, hit)
	default:
		n := hit.Normal
		return [3]float64{n.X*0.5 + 0.5, n.Y*0.5 + 0.5, n.Z*0.5 + 0.5}
	}
}

// lit is ambient plus, for every light the shadow ray does not find blocked,
// Lambert diffuse and Phong specular terms.
func (s *shader) lit(ray solver.Ray, hit solver.Intersection) [3]float64 {
	mat := hit.Material
	n := hit.Normal
	view := v3.Vec{X: -ray.Direction.X, Y: -ray.Direction.Y, Z: -ray.Direction.Z}
	origin := hit.Position.Add(n.MulScalar(s.bias))

	out := [3]float64{
		s.Ambient[0] * s.Color[0],
		s.Ambient[1] * s.Color[1],
		s.Ambient[2] * s.Color[2],
	}
	for _, l := range s.Lights {
		il := l.Illuminate(hit.Position)
		if il.Intensity == ([3]float64{}) {
			continue
		}
		if s.shadow.SolveSimple(solver.Ray{Origin: origin, Direction: il.Direction}, il.Distance).Hit {
			continue
		}
		diffuse := mat.Albedo * math.Max(0, n.Dot(il.Direction)) * mat.Diffuse
		refl := reflect(v3.Vec{X: -il.Direction.X, Y: -il.Direction.Y, Z: -il.Direction.Z}, n)
		specular := math.Pow(math.Max(refl.Dot(view), 0), mat.Exponent) * mat.Specular
		for i := range out {
			out[i] += il.Intensity[i] * (diffuse*s.Color[i] + specular)
		}
	}
	return out
}

func reflect(d, n v3.Vec) v3.Vec {
	return d.Sub(n.MulScalar(2 * d.Dot(n)))
}

// trapColor maps the trap into [0,1]. Mandelbulb traps carry the escape
// iteration, julia traps carry orbit minima.
func trapColor(hit solver.Intersection) [3]float64 {
	tr := hit.Trap
	if tr[0] == tr[1] && tr[1] == tr[2] && tr[2] == tr[3] {
		v := tr[0] / 14
		return [3]float64{v, 0.5 * v, 1 - v}
	}
	return [3]float64{
		1 - math.Min(1, tr[0]),
		1 - math.Min(1, tr[1]),
		1 - math.Min(1, math.Sqrt(tr[3])),
	}
}
