package wall

import (
	"fmt"
	"sort"
	"strconv"
)

// AttrKey names a wall attribute that decomposition knows about.
type AttrKey string

const (
	AttrBaseConstraint  AttrKey = "base_constraint"
	AttrBaseOffset      AttrKey = "base_offset"
	AttrTopConstraint   AttrKey = "top_constraint"
	AttrTopOffset       AttrKey = "top_offset"
	AttrPhaseCreated    AttrKey = "phase_created"
	AttrPhaseDemolished AttrKey = "phase_demolished"
	AttrComments        AttrKey = "comments"
	AttrMark            AttrKey = "mark"
)

// AttrKind is the value type of an attribute.
type AttrKind int

const (
	AttrText AttrKind = iota
	AttrLength
	AttrLevelRef
)

// CopyPolicy decides whether an attribute is carried onto segments.
type CopyPolicy int

const (
	Skip CopyPolicy = iota
	Copy
)

// AttrDef describes one attribute of the schema.
type AttrDef struct {
	Key    AttrKey
	Kind   AttrKind
	Policy CopyPolicy
}

// AttributeCopyPolicy lists every known attribute and whether segments
// inherit it from the wall they were decomposed from. Marks identify a
// single element and are not copied.
var AttributeCopyPolicy = []AttrDef{
	{Key: AttrBaseConstraint, Kind: AttrLevelRef, Policy: Copy},
	{Key: AttrBaseOffset, Kind: AttrLength, Policy: Copy},
	{Key: AttrTopConstraint, Kind: AttrLevelRef, Policy: Copy},
	{Key: AttrTopOffset, Kind: AttrLength, Policy: Copy},
	{Key: AttrPhaseCreated, Kind: AttrText, Policy: Copy},
	{Key: AttrPhaseDemolished, Kind: AttrText, Policy: Copy},
	{Key: AttrComments, Kind: AttrText, Policy: Skip},
	{Key: AttrMark, Kind: AttrText, Policy: Skip},
}

// LookupAttr returns the schema entry for key.
func LookupAttr(key AttrKey) (AttrDef, bool) {
	for _, d := range AttributeCopyPolicy {
		if d.Key == key {
			return d, true
		}
	}
	return AttrDef{}, false
}

// Attributes holds attribute values as text.
type Attributes map[AttrKey]string

// Validate checks every key against the schema and parses lengths.
func (a Attributes) Validate() error {
	for _, k := range a.Keys() {
		def, ok := LookupAttr(k)
		if !ok {
			return fmt.Errorf("unknown attribute %q", k)
		}
		if def.Kind == AttrLength {
			if _, err := strconv.ParseFloat(a[k], 64); err != nil {
				return fmt.Errorf("attribute %q: %w", k, err)
			}
		}
	}
	return nil
}

// Length parses a length attribute. Missing keys return ok=false.
func (a Attributes) Length(key AttrKey) (float64, bool, error) {
	v, ok := a[key]
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, true, fmt.Errorf("attribute %q: %w", key, err)
	}
	return f, true, nil
}

// Keys returns the attribute keys in sorted order.
func (a Attributes) Keys() []AttrKey {
	keys := make([]AttrKey, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ForSegment returns the subset of attributes with a Copy policy.
func (a Attributes) ForSegment() Attributes {
	out := make(Attributes)
	for _, d := range AttributeCopyPolicy {
		if d.Policy != Copy {
			continue
		}
		if v, ok := a[d.Key]; ok {
			out[d.Key] = v
		}
	}
	return out
}

// Clone returns a copy of the attributes.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
