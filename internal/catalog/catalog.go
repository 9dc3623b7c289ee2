// Package catalog is the static impact-method lookup table. The table is a
// data asset embedded at build time; nothing here talks to a database.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed methods.yaml
var methodsYAML []byte

// ErrUnknownMethod is returned when a short code is not in the catalog.
var ErrUnknownMethod = errors.New("unknown impact method")

// DefaultCode is the method preselected for carbon accounting.
const DefaultCode = "GCC"

// Method describes one impact assessment method.
type Method struct {
	Code       string   `yaml:"code" json:"code"`
	Identifier []string `yaml:"identifier" json:"identifier"`
	Name       string   `yaml:"name" json:"name"`
	Unit       string   `yaml:"unit" json:"unit"`
}

// Label is the display string used in selection lists.
func (m Method) Label() string {
	return fmt.Sprintf("%s - %s %s", m.Code, m.Name, m.Unit)
}

// Catalog is an immutable code -> Method table.
type Catalog struct {
	methods []Method
	byCode  map[string]int
}

// Parse builds a catalog from YAML of the form {methods: [...]}.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Methods []Method `yaml:"methods"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing method catalog: %w", err)
	}
	c := &Catalog{byCode: make(map[string]int, len(doc.Methods))}
	for _, m := range doc.Methods {
		if m.Code == "" {
			return nil, errors.New("method catalog entry without code")
		}
		if _, dup := c.byCode[m.Code]; dup {
			return nil, fmt.Errorf("duplicate method code %q", m.Code)
		}
		c.byCode[m.Code] = len(c.methods)
		c.methods = append(c.methods, m)
	}
	return c, nil
}

var builtin = mustParse(methodsYAML)

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Builtin returns the catalog shipped with the binary.
func Builtin() *Catalog { return builtin }

// Lookup finds a method by short code, case-insensitively.
func (c *Catalog) Lookup(code string) (Method, error) {
	i, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Method{}, fmt.Errorf("%w: %q", ErrUnknownMethod, code)
	}
	return c.methods[i], nil
}

// All returns the methods in catalog order.
func (c *Catalog) All() []Method {
	out := make([]Method, len(c.methods))
	copy(out, c.methods)
	return out
}

// Available returns the catalog entries whose codes appear in codes, sorted
// by code. Codes with no catalog entry are skipped.
func (c *Catalog) Available(codes []string) []Method {
	var out []Method
	for _, code := range codes {
		if i, ok := c.byCode[code]; ok {
			out = append(out, c.methods[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Default returns the GCC method, or the first entry when GCC is absent.
func (c *Catalog) Default() (Method, bool) {
	if i, ok := c.byCode[DefaultCode]; ok {
		return c.methods[i], true
	}
	if len(c.methods) == 0 {
		return Method{}, false
	}
	return c.methods[0], true
}

// Lookup resolves a code against the builtin catalog.
func Lookup(code string) (Method, error) { return builtin.Lookup(code) }
