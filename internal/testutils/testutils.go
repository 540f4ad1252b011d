// Package testutils holds fixtures shared by the package tests.
package testutils

import (
	"fmt"
	"strings"
)

// AlphabetColumns are the column names of the alphabet fixture, in order.
var AlphabetColumns = []string{"character", "name", "is_modern", "numeric_value"}

// AlphabetTypes are the type tags of the alphabet fixture columns.
var AlphabetTypes = map[string]string{
	"character":     "string",
	"name":          "string",
	"is_modern":     "boolean",
	"numeric_value": "number",
}

var alphabet = []struct {
	character, name string
	modern          bool
}{
	{"α", "alpha", true}, {"β", "beta", true}, {"γ", "gamma", true}, {"δ", "delta", true},
	{"ε", "epsilon", true}, {"ζ", "zeta", true}, {"η", "eta", true}, {"θ", "theta", true},
	{"ι", "iota", true}, {"κ", "kappa", true}, {"λ", "lambda", true}, {"μ", "mu", true},
	{"ν", "nu", true}, {"ξ", "xi", true}, {"ο", "omicron", true}, {"π", "pi", true},
	{"ρ", "rho", true}, {"σ", "sigma", true}, {"τ", "tau", true}, {"υ", "upsilon", true},
	{"φ", "phi", true}, {"χ", "chi", true}, {"ψ", "psi", true}, {"ω", "omega", false},
}

// AlphabetLen is the row count of the alphabet fixture.
const AlphabetLen = 24

// Alphabet returns the alphabet fixture as column name to values. The numeric values run from 1
// to 24.
func Alphabet() map[string][]any {
	ret := map[string][]any{}
	for i, l := range alphabet {
		ret["character"] = append(ret["character"], l.character)
		ret["name"] = append(ret["name"], l.name)
		ret["is_modern"] = append(ret["is_modern"], l.modern)
		ret["numeric_value"] = append(ret["numeric_value"], float64(i+1))
	}
	return ret
}

// AlphabetRows returns the alphabet fixture as row objects.
func AlphabetRows() []map[string]any {
	ret := make([]map[string]any, len(alphabet))
	for i, l := range alphabet {
		ret[i] = map[string]any{
			"character":     l.character,
			"name":          l.name,
			"is_modern":     l.modern,
			"numeric_value": float64(i + 1),
		}
	}
	return ret
}

// AlphabetCSV renders the alphabet fixture as comma-separated text with a header line.
func AlphabetCSV() string {
	b := strings.Builder{}
	b.WriteString(strings.Join(AlphabetColumns, ",") + "\n")
	for i, l := range alphabet {
		fmt.Fprintf(&b, "%s,%s,%t,%d\n", l.character, l.name, l.modern, i+1)
	}
	return b.String()
}
