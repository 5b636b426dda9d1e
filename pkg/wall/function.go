package wall

import (
	"fmt"
	"strings"
)

// Function is the role a layer plays in a composite wall.
type Function int

const (
	Structure Function = iota
	Substrate
	Insulation
	Finish1
	Finish2
	Membrane
	StructuralDeck
	Other
)

type functionInfo struct {
	code string // four-letter code used in generated type names
	name string
}

// functionTable maps each Function to its code and display name.
var functionTable = [...]functionInfo{
	Structure:      {code: "Stru", name: "Structure"},
	Substrate:      {code: "Subs", name: "Substrate"},
	Insulation:     {code: "Isol", name: "Insulation"},
	Finish1:        {code: "Fin1", name: "Finish1"},
	Finish2:        {code: "Fin2", name: "Finish2"},
	Membrane:       {code: "Memb", name: "Membrane"},
	StructuralDeck: {code: "Deck", name: "StructuralDeck"},
	Other:          {code: "Autr", name: "Other"},
}

// Functions returns every Function in declaration order.
func Functions() []Function {
	out := make([]Function, len(functionTable))
	for i := range functionTable {
		out[i] = Function(i)
	}
	return out
}

func (f Function) info() functionInfo {
	if f < 0 || int(f) >= len(functionTable) {
		return functionTable[Other]
	}
	return functionTable[f]
}

// Code returns the four-letter code of the function. Unknown values map to
// the code of Other.
func (f Function) Code() string { return f.info().code }

func (f Function) String() string { return f.info().name }

// ParseFunction accepts a function code or display name, case-insensitive.
// Hyphens, underscores and spaces are ignored, so "structural-deck" and
// "finish_1" are accepted.
func ParseFunction(s string) (Function, error) {
	want := normalizeFunctionName(s)
	for i, fi := range functionTable {
		if want == strings.ToLower(fi.code) || want == strings.ToLower(fi.name) {
			return Function(i), nil
		}
	}
	return Other, fmt.Errorf("unknown layer function %q", s)
}

func normalizeFunctionName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// MarshalText encodes the function by its display name.
func (f Function) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a function code or display name.
func (f *Function) UnmarshalText(text []byte) error {
	parsed, err := ParseFunction(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
