package solver

import (
	"github.com/chazu/sdfmarch/pkg/light"
)

// VolumetricStep caps each march step so light is sampled densely along
// the ray.
const VolumetricStep = 0.05

// VolumetricResult is a primary intersection plus the light gathered along
// the way.
type VolumetricResult struct {
	Intersection
	PathLight [3]float64
}

// SolveVolumetric marches a primary ray with steps capped at VolumetricStep.
// After every step each light that is not occluded from the current point,
// according to SolveSimple, adds its intensity to PathLight.
func (s *Solver) SolveVolumetric(ray Ray, lights []light.Light) VolumetricResult {
	var path [3]float64
	pos := ray.Origin
	total := 0.0
	for step := 0; step < s.cfg.StepLimit; step++ {
		smp := s.QueryWorld(pos)
		if smp.Distance < s.cfg.MinDist {
			res := Intersection{
				Hit:      true,
				Distance: total,
				Steps:    step,
				Position: pos,
				Trap:     smp.Trap,
				Material: smp.Material,
			}
			if n, ok := s.Normal(pos); ok {
				res.Normal = n
			} else {
				res.Hit = false
			}
			return VolumetricResult{Intersection: res, PathLight: path}
		}
		if smp.Distance > s.cfg.MaxDist {
			return VolumetricResult{
				Intersection: Intersection{
					Distance: total,
					Steps:    step,
					Position: pos,
					Trap:     smp.Trap,
					Material: smp.Material,
				},
				PathLight: path,
			}
		}
		d := min(smp.Distance, VolumetricStep)
		total += d
		pos = pos.Add(ray.Direction.MulScalar(d))

		for _, l := range lights {
			il := l.Illuminate(pos)
			if s.SolveSimple(Ray{Origin: pos, Direction: il.Direction}, il.Distance).Hit {
				continue
			}
			path[0] += il.Intensity[0]
			path[1] += il.Intensity[1]
			path[2] += il.Intensity[2]
		}
	}
	return VolumetricResult{
		Intersection: Intersection{
			Distance: total,
			Steps:    s.cfg.StepLimit,
			Position: pos,
			Material: s.fallback,
		},
		PathLight: path,
	}
}
