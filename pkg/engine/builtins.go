package engine

import (
	"fmt"
	"strconv"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/strata/pkg/geom"
	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/wall"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites model source into something zygomys accepts:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols.
//  2. kebab-case identifiers become snake_case (wall-type -> wall_type);
//     zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left alone.
func preprocessSource(source string) string {
	out := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch c := b[i]; {
		case c == '"':
			j := skipString(b, i)
			out = append(out, b[i:j]...)
			i = j
		case c == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j
		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}
		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2
		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipString returns the index just past the double-quoted literal that
// starts at i.
func skipString(b []byte, i int) int {
	j := i + 1
	for j < len(b) && b[j] != '"' {
		if b[j] == '\\' && j+1 < len(b) {
			j++
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
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
// Values passed between builtins
// ---------------------------------------------------------------------------

type sexpPoint struct {
	p geom.Point
}

func (s *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pt %g %g %g)", s.p.X, s.p.Y, s.p.Z)
}
func (s *sexpPoint) Type() *zygo.RegisteredType { return nil }

type sexpMaterial struct {
	m wall.Material
}

func (s *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q :name %q)", s.m.ID, s.m.Name)
}
func (s *sexpMaterial) Type() *zygo.RegisteredType { return nil }

type sexpLayer struct {
	l wall.LayerSpec
}

func (s *sexpLayer) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(layer :%s %g)", strings.ToLower(s.l.Function.Code()), s.l.Thickness)
}
func (s *sexpLayer) Type() *zygo.RegisteredType { return nil }

// sexpRef names a level, a wall type or a wall defined earlier.
type sexpRef struct {
	kind string
	id   wall.ID
}

func (s *sexpRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", s.kind, s.id)
}
func (s *sexpRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword arguments
// ---------------------------------------------------------------------------

// kwPrefix marks keyword strings produced by preprocessSource.
const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs splits args into keyword and positional arguments. A keyword
// with nothing after it is recorded with a null value.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		var v zygo.Sexp = zygo.SexpNull
		if i+1 < len(args) {
			v = args[i+1]
			i++
		}
		if _, dup := res.kw[name]; !dup {
			res.order = append(res.order, name)
		}
		res.kw[name] = v
	}
	return res
}

// ---------------------------------------------------------------------------
// Value extraction
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a keyword (:basic) or a plain string ("basic").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toText renders a string or number as attribute text.
func toText(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *zygo.SexpStr:
		return strings.TrimPrefix(v.S, kwPrefix), nil
	case *zygo.SexpInt:
		return strconv.FormatInt(v.Val, 10), nil
	case *zygo.SexpFloat:
		return strconv.FormatFloat(v.Val, 'f', -1, 64), nil
	case *sexpRef:
		return string(v.id), nil
	}
	return "", fmt.Errorf("expected text or number, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil // bare :flipped
		}
	case *zygo.SexpStr:
		switch strings.TrimPrefix(v.S, kwPrefix) {
		case "true", "yes":
			return true, nil
		case "false", "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toPoint(s zygo.Sexp) (geom.Point, error) {
	if p, ok := s.(*sexpPoint); ok {
		return p.p, nil
	}
	return geom.Point{}, fmt.Errorf("expected point, got %T (%s)", s, s.SexpString(nil))
}

// toID accepts a reference returned by a builtin of the given kind, or a
// plain string id.
func toID(kind string, s zygo.Sexp) (wall.ID, error) {
	switch v := s.(type) {
	case *sexpRef:
		if v.kind != kind {
			return "", fmt.Errorf("expected %s, got %s %q", kind, v.kind, v.id)
		}
		return v.id, nil
	case *zygo.SexpStr:
		return wall.ID(strings.TrimPrefix(v.S, kwPrefix)), nil
	}
	return "", fmt.Errorf("expected %s, got %T (%s)", kind, s, s.SexpString(nil))
}

func toMaterial(s zygo.Sexp) (wall.Material, error) {
	switch v := s.(type) {
	case *sexpMaterial:
		return v.m, nil
	case *zygo.SexpStr:
		return wall.Material{Name: v.S}, nil
	}
	return wall.Material{}, fmt.Errorf("expected material, got %T (%s)", s, s.SexpString(nil))
}

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
// Document builder
// ---------------------------------------------------------------------------

type builder struct {
	doc model.Document
}

func newBuilder() *builder {
	return &builder{}
}

// document returns the built document with empty slices instead of nil.
func (b *builder) document() *model.Document {
	doc := b.doc
	if doc.Levels == nil {
		doc.Levels = []model.Level{}
	}
	if doc.Types == nil {
		doc.Types = []model.WallType{}
	}
	if doc.Walls == nil {
		doc.Walls = []model.Wall{}
	}
	return &doc
}

// requireID reads the element id from the first positional argument.
func requireID(fn string, pa kwArgs) (wall.ID, error) {
	if len(pa.positional) < 1 {
		return "", fmt.Errorf("%s requires an id as first argument", fn)
	}
	s, err := toString(pa.positional[0])
	if err != nil {
		return "", fmt.Errorf("%s: id: %w", fn, err)
	}
	if s == "" {
		return "", fmt.Errorf("%s: id must not be empty", fn)
	}
	return wall.ID(s), nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the model builtins into env. They append to b
// as the script runs. Source must go through preprocessSource first.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// (pt 0 0) or (pt 0 0 3000)
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 && len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("pt requires 2 or 3 coordinates, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pt: coordinate %d: %w", i+1, err)
			}
			c[i] = f
		}
		return &sexpPoint{p: geom.Pt3(c[0], c[1], c[2])}, nil
	})

	// (level "L1" :name "Ground" :elevation 0)
	env.AddFunction("level", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		id, err := requireID("level", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		l := model.Level{ID: id, Name: string(id)}
		if v, ok := pa.kw["name"]; ok {
			if l.Name, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("level: name: %w", err)
			}
		}
		if v, ok := pa.kw["elevation"]; ok {
			if l.Elevation, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("level: elevation: %w", err)
			}
		}
		b.doc.Levels = append(b.doc.Levels, l)
		return &sexpRef{kind: "level", id: id}, nil
	})

	// (material "M-conc" :name "Concrete")
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		id, err := requireID("material", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		m := wall.Material{ID: id, Name: string(id)}
		if v, ok := pa.kw["name"]; ok {
			if m.Name, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("material: name: %w", err)
			}
		}
		return &sexpMaterial{m: m}, nil
	})

	// (layer :structure 200 :material concrete)
	env.AddFunction("layer", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var l wall.LayerSpec
		var fn string
		rest := pa.positional

		// The function is usually written as a bare keyword, which
		// parseArgs takes for a keyword with the thickness as its value.
		if len(pa.order) > 0 {
			if f, err := wall.ParseFunction(pa.order[0]); err == nil {
				fn = pa.order[0]
				l.Function = f
				t, err := toFloat64(pa.kw[fn])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("layer: thickness: %w", err)
				}
				l.Thickness = t
			}
		}
		if fn == "" {
			if len(rest) < 2 {
				return zygo.SexpNull, fmt.Errorf("layer requires a function and a thickness")
			}
			s, err := toKeywordString(rest[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: function: %w", err)
			}
			if l.Function, err = wall.ParseFunction(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: %w", err)
			}
			if l.Thickness, err = toFloat64(rest[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: thickness: %w", err)
			}
		}
		if v, ok := pa.kw["material"]; ok {
			m, err := toMaterial(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: material: %w", err)
			}
			l.Material = m
		}
		if l.Thickness <= 0 {
			return zygo.SexpNull, fmt.Errorf("layer: thickness must be positive, got %g", l.Thickness)
		}
		return &sexpLayer{l: l}, nil
	})

	// (wall-type "T-160" :name "Exterior 160" :kind :basic (layer ...) ...)
	env.AddFunction("wall_type", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		id, err := requireID("wall-type", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		t := model.WallType{ID: id, Name: string(id), Kind: model.Basic}
		if v, ok := pa.kw["name"]; ok {
			if t.Name, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("wall-type: name: %w", err)
			}
		}
		if v, ok := pa.kw["kind"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall-type: kind: %w", err)
			}
			if t.Kind, err = model.ParseTypeKind(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("wall-type: %w", err)
			}
		}

		layers := pa.positional[1:]
		if v, ok := pa.kw["layers"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall-type: layers: %w", err)
			}
			layers = append(layers, items...)
		}
		for i, a := range layers {
			l, ok := a.(*sexpLayer)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("wall-type: entry %d: expected layer, got %T (%s)",
					i+1, a, a.SexpString(nil))
			}
			t.Layers = append(t.Layers, l.l)
		}
		b.doc.Types = append(b.doc.Types, t)
		return &sexpRef{kind: "wall-type", id: id}, nil
	})

	// (wall "W1" :type ext :from (pt 0 0) :to (pt 5000 0) :height 3000
	//       :level l1 :justification :finish-exterior :flipped true
	//       :mark "EXT-1")
	env.AddFunction("wall", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		id, err := requireID("wall", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		w := model.Wall{ID: id}

		v, ok := pa.kw["type"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("wall %s: :type is required", id)
		}
		if w.Type, err = toID("wall-type", v); err != nil {
			return zygo.SexpNull, fmt.Errorf("wall %s: type: %w", id, err)
		}

		from, okFrom := pa.kw["from"]
		to, okTo := pa.kw["to"]
		if okFrom != okTo {
			return zygo.SexpNull, fmt.Errorf("wall %s: :from and :to go together", id)
		}
		if okFrom {
			start, err := toPoint(from)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %s: from: %w", id, err)
			}
			end, err := toPoint(to)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %s: to: %w", id, err)
			}
			w.Curve = &geom.Line{Start: start, End: end}
		}

		if v, ok := pa.kw["height"]; ok {
			if w.Height, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %s: height: %w", id, err)
			}
		}
		if v, ok := pa.kw["level"]; ok {
			if w.Level, err = toID("level", v); err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %s: level: %w", id, err)
			}
		}
		if v, ok := pa.kw["justification"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %s: justification: %w", id, err)
			}
			if w.Justification, err = wall.ParseJustification(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %s: %w", id, err)
			}
		}
		if v, ok := pa.kw["flipped"]; ok {
			if w.Flipped, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %s: flipped: %w", id, err)
			}
		}

		for _, k := range pa.order {
			key := wall.AttrKey(strings.ReplaceAll(k, "-", "_"))
			if _, known := wall.LookupAttr(key); !known {
				continue
			}
			text, err := toText(pa.kw[k])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %s: %s: %w", id, k, err)
			}
			if w.Attributes == nil {
				w.Attributes = make(wall.Attributes)
			}
			w.Attributes[key] = text
		}

		b.doc.Walls = append(b.doc.Walls, w)
		return &sexpRef{kind: "wall", id: id}, nil
	})
}
