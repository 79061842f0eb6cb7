package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/sdfmarch/pkg/field"
	"github.com/chazu/sdfmarch/pkg/light"
	"github.com/chazu/sdfmarch/pkg/param"
	"github.com/chazu/sdfmarch/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites scene source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need no
//     global bindings and cannot collide with user variables.
//  2. kebab-case identifiers become snake_case (smooth-union -> smooth_union),
//     since zygomys reads a hyphen as the minus operator.
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is part of a name, not a minus.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Go values carried through the interpreter
// ---------------------------------------------------------------------------

// sexpNode wraps a field node returned by a shape or CSG builtin.
type sexpNode struct {
	node field.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", n.node.Kind())
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// sexpScalar is an animated number: a track registered in the scene's table.
type sexpScalar struct {
	s param.Scalar
}

func (s *sexpScalar) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(track %s %.3f)", s.s.ID, s.s.Default)
}
func (s *sexpScalar) Type() *zygo.RegisteredType { return nil }

// sexpVec3 holds three possibly animated components.
type sexpVec3 struct {
	vec param.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.3f %.3f %.3f)", v.vec[0].Default, v.vec[1].Default, v.vec[2].Default)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpVec4 holds four possibly animated components.
type sexpVec4 struct {
	vec [4]param.Scalar
}

func (v *sexpVec4) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec4 %.3f %.3f %.3f %.3f)",
		v.vec[0].Default, v.vec[1].Default, v.vec[2].Default, v.vec[3].Default)
}
func (v *sexpVec4) Type() *zygo.RegisteredType { return nil }

// sexpMaterial wraps surface parameters.
type sexpMaterial struct {
	mat field.MaterialParams
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material :albedo %.3f :specular %.3f)", m.mat.Albedo.Default, m.mat.Specular.Default)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpModifier wraps a domain warp.
type sexpModifier struct {
	name string
	mod  field.Modifier
}

func (m *sexpModifier) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", m.name)
}
func (m *sexpModifier) Type() *zygo.RegisteredType { return nil }

// sexpLight wraps a light that has already been added to the scene.
type sexpLight struct {
	light light.Light
}

func (l *sexpLight) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(light %T)", l.light)
}
func (l *sexpLight) Type() *zygo.RegisteredType { return nil }

// sexpKey is one keyframe, consumed by keyframes.
type sexpKey struct {
	key param.Key
}

func (k *sexpKey) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(key %.3f %.3f)", k.key.Time, k.key.Value)
}
func (k *sexpKey) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds a mixed positional and keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates keyword pairs from positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// only rejects keywords outside allowed, so a typo is not silently ignored.
func (pa kwArgs) only(fn string, allowed ...string) error {
	var unknown []string
	for k := range pa.kw {
		found := false
		for _, a := range allowed {
			if k == a {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, ":"+k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%s: unknown keyword %s", fn, strings.Join(unknown, ", "))
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a plain number.
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a keyword (:lit) or a plain string ("lit").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool accepts true/false; a bare trailing keyword counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toScalar accepts a number or an animated track.
func toScalar(s zygo.Sexp) (param.Scalar, error) {
	if v, ok := s.(*sexpScalar); ok {
		return v.s, nil
	}
	f, err := toFloat64(s)
	if err != nil {
		return param.Scalar{}, fmt.Errorf("expected number or track: %w", err)
	}
	return param.Const(f), nil
}

// toVec3 accepts a vec3, or a single number or track used for all three
// components.
func toVec3(s zygo.Sexp) (param.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	sc, err := toScalar(s)
	if err != nil {
		return param.Vec3{}, fmt.Errorf("expected vec3: %w", err)
	}
	return param.Vec3{sc, sc, sc}, nil
}

func toVec4(s zygo.Sexp) ([4]param.Scalar, error) {
	if v, ok := s.(*sexpVec4); ok {
		return v.vec, nil
	}
	return [4]param.Scalar{}, fmt.Errorf("expected vec4, got %T (%s)", s, s.SexpString(nil))
}

// toNode extracts a field node.
func toNode(s zygo.Sexp) (field.Node, error) {
	if n, ok := s.(*sexpNode); ok {
		return n.node, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

func toMaterial(s zygo.Sexp) (field.MaterialParams, error) {
	if m, ok := s.(*sexpMaterial); ok {
		return m.mat, nil
	}
	return field.MaterialParams{}, fmt.Errorf("expected material, got %T (%s)", s, s.SexpString(nil))
}

// toModifiers accepts one modifier or a list of them.
func toModifiers(s zygo.Sexp) ([]field.Modifier, error) {
	if m, ok := s.(*sexpModifier); ok {
		return []field.Modifier{m.mod}, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, fmt.Errorf("expected modifier or list of modifiers: %w", err)
	}
	out := make([]field.Modifier, 0, len(items))
	for i, item := range items {
		m, ok := item.(*sexpModifier)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected modifier, got %T (%s)", i, item, item.SexpString(nil))
		}
		out = append(out, m.mod)
	}
	return out, nil
}

// toEase maps :linear, :smooth, :smoother and :steep onto easing curves.
func toEase(s zygo.Sexp) (param.Ease, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return nil, err
	}
	switch name {
	case "linear":
		return param.Linear{}, nil
	case "smooth":
		return param.Smoothstep{Order: 1}, nil
	case "smoother":
		return param.Smoothstep{Order: 2}, nil
	case "steep":
		return param.Smoothstep{Order: 3}, nil
	}
	return nil, fmt.Errorf("invalid ease %q, expected linear, smooth, smoother or steep", name)
}

// sexpListToSlice converts a list or array to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builder accumulates the scene while a script runs.
type builder struct {
	sc *scene.Scene
}

// scalarKW reads an optional scalar keyword, keeping def when absent.
func (b *builder) scalarKW(fn string, pa kwArgs, key string, def param.Scalar) (param.Scalar, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	s, err := toScalar(v)
	if err != nil {
		return param.Scalar{}, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	return s, nil
}

// vec3KW reads an optional vec3 keyword, keeping def when absent.
func (b *builder) vec3KW(fn string, pa kwArgs, key string, def param.Vec3) (param.Vec3, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return param.Vec3{}, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	return vec, nil
}

// constVec3KW reads a vec3 keyword that must not be animated, resolved at
// t = 0.
func (b *builder) constVec3KW(fn string, pa kwArgs, key string, def [3]float64) ([3]float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return def, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	r := vec.Resolve(b.sc.Params, 0)
	return [3]float64{r.X, r.Y, r.Z}, nil
}

// track registers tr and returns a scalar bound to it.
func (b *builder) track(tr param.Track) *sexpScalar {
	id := b.sc.Params.Add(tr)
	return &sexpScalar{s: param.Bind(id, tr.At(0))}
}

// registerBuiltins installs the scene language into env. Source must go
// through preprocessSource first so keywords are recognizable.
func registerBuiltins(env *zygo.Zlisp, sc *scene.Scene) {
	b := &builder{sc: sc}
	b.registerShapes(env)
	b.registerValues(env)
	b.registerScene(env)
}
