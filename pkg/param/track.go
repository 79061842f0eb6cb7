package param

import (
	"math"
	"sort"
)

// Compile-time interface checks.
var (
	_ Track = Constant(0)
	_ Track = Interpolator{}
	_ Track = (*Keyframes)(nil)
	_ Track = Wave{}
)

// Constant is a track that never changes.
type Constant float64

// At implements Track.
func (c Constant) At(float64) float64 { return float64(c) }

// Interpolator sweeps from Min to Max once per Interval. With Oscillate set,
// every second interval runs backwards so the motion ping-pongs.
type Interpolator struct {
	Min       float64
	Max       float64
	Interval  float64
	Oscillate bool
	Ease      Ease // nil means linear
}

// At implements Track.
func (ip Interpolator) At(t float64) float64 {
	if ip.Interval <= 0 {
		return ip.Min
	}
	f := 0.0
	if t != 0 {
		f = math.Mod(t, ip.Interval) / ip.Interval
	}
	if ip.Oscillate && math.Mod(t, ip.Interval*2) >= ip.Interval {
		f = 1 - f
	}
	if ip.Ease != nil {
		f = ip.Ease.Ease(f)
	}
	return mix(ip.Min, ip.Max, f)
}

// Wave is a cosine oscillation: Offset + Amplitude*cos(Phase + t*Frequency).
type Wave struct {
	Amplitude float64
	Frequency float64
	Phase     float64
	Offset    float64
}

// At implements Track.
func (w Wave) At(t float64) float64 {
	return w.Offset + w.Amplitude*math.Cos(w.Phase+t*w.Frequency)
}

// Key is one keyframe. Ease shapes the segment that starts at this key.
type Key struct {
	Time  float64
	Value float64
	Ease  Ease
}

// Keyframes interpolates between keys sorted by time. Before the first key
// and after the last the track holds the nearest key's value.
type Keyframes struct {
	keys []Key
}

// NewKeyframes copies and sorts the keys by time.
func NewKeyframes(keys ...Key) *Keyframes {
	ks := make([]Key, len(keys))
	copy(ks, keys)
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].Time < ks[j].Time })
	return &Keyframes{keys: ks}
}

// Keys returns a copy of the sorted keys.
func (k *Keyframes) Keys() []Key {
	out := make([]Key, len(k.keys))
	copy(out, k.keys)
	return out
}

// At implements Track.
func (k *Keyframes) At(t float64) float64 {
	n := len(k.keys)
	switch {
	case n == 0:
		return 0
	case t <= k.keys[0].Time:
		return k.keys[0].Value
	case t >= k.keys[n-1].Time:
		return k.keys[n-1].Value
	}
	// first key strictly after t; i >= 1 because t > keys[0].Time
	i := sort.Search(n, func(i int) bool { return k.keys[i].Time > t })
	a, b := k.keys[i-1], k.keys[i]
	span := b.Time - a.Time
	if span <= 0 {
		return b.Value
	}
	f := (t - a.Time) / span
	if a.Ease != nil {
		f = a.Ease.Ease(f)
	}
	return mix(a.Value, b.Value, f)
}

func mix(a, b, f float64) float64 {
	return a*(1-f) + b*f
}
