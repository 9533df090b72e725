package profile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Built-in profile names.
const (
	Default    = "default"
	Operations = "operations"
	Ecommerce  = "ecommerce"
	Medical    = "medical"
)

var (
	// ErrReservedProfile is returned when a custom profile reuses a built-in name.
	ErrReservedProfile = errors.New("profile name is reserved")

	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Bounds are the character length bounds of a profile, measured in code points.
type Bounds struct {
	Min         int `json:"min_length"`
	Max         int `json:"max_length"`
	OptimalLow  int `json:"optimal_low"`
	OptimalHigh int `json:"optimal_high"`
}

// Profile is a named bundle of scoring weights, classification thresholds and
// length bounds. It is a comparable value type: two profiles are equal when
// == holds, and Hash is stable across processes.
type Profile struct {
	Name string `json:"name"`

	QualityWeight    float64 `json:"quality_weight"`
	RedundancyWeight float64 `json:"redundancy_weight"`
	SizeWeight       float64 `json:"size_weight"`
	SimilarityWeight float64 `json:"similarity_weight"`

	QualityThreshold    float64 `json:"quality_threshold"`
	RedundancyThreshold float64 `json:"redundancy_threshold"`
	SizeThreshold       float64 `json:"size_threshold"`
	SimilarityThreshold float64 `json:"similarity_threshold"`

	Bounds Bounds `json:"bounds"`
}

// Equal reports whether p and other carry identical values.
func (p Profile) Equal(other Profile) bool {
	return p == other
}

// Hash returns a stable 64-bit hash over every field of the profile.
func (p Profile) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(p.Name)

	var buf [8]byte
	for _, f := range []float64{
		p.QualityWeight, p.RedundancyWeight, p.SizeWeight, p.SimilarityWeight,
		p.QualityThreshold, p.RedundancyThreshold, p.SizeThreshold, p.SimilarityThreshold,
	} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write(buf[:])
	}
	for _, n := range []int{p.Bounds.Min, p.Bounds.Max, p.Bounds.OptimalLow, p.Bounds.OptimalHigh} {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(n)))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// Validate checks that thresholds lie in [0,1], weights are non-negative and
// the length bounds are ordered min <= low <= high <= max.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	weights := map[string]float64{
		"quality_weight":    p.QualityWeight,
		"redundancy_weight": p.RedundancyWeight,
		"size_weight":       p.SizeWeight,
		"similarity_weight": p.SimilarityWeight,
	}
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: %s: %s must be a non-negative number", ErrInvalidProfile, p.Name, name)
		}
	}
	thresholds := map[string]float64{
		"quality_threshold":    p.QualityThreshold,
		"redundancy_threshold": p.RedundancyThreshold,
		"size_threshold":       p.SizeThreshold,
		"similarity_threshold": p.SimilarityThreshold,
	}
	for name, t := range thresholds {
		if !(t >= 0 && t <= 1) {
			return fmt.Errorf("%w: %s: %s must be in [0,1], got %v", ErrInvalidProfile, p.Name, name, t)
		}
	}

	b := p.Bounds
	if b.Min <= 0 || b.Max <= 0 {
		return fmt.Errorf("%w: %s: min_length and max_length must be positive", ErrInvalidProfile, p.Name)
	}
	if !(b.Min <= b.OptimalLow && b.OptimalLow <= b.OptimalHigh && b.OptimalHigh <= b.Max) {
		return fmt.Errorf("%w: %s: bounds must satisfy min <= optimal_low <= optimal_high <= max, got %d/%d/%d/%d",
			ErrInvalidProfile, p.Name, b.Min, b.OptimalLow, b.OptimalHigh, b.Max)
	}
	return nil
}

// builtins are the shipped profiles. Values are part of the public contract.
var builtins = []Profile{
	{
		Name:          Default,
		QualityWeight: 0.4, RedundancyWeight: 0.3, SizeWeight: 0.2, SimilarityWeight: 0.1,
		QualityThreshold: 0.6, RedundancyThreshold: 0.5, SizeThreshold: 0.5, SimilarityThreshold: 0.85,
		Bounds: Bounds{Min: 50, Max: 2000, OptimalLow: 300, OptimalHigh: 1000},
	},
	{
		Name:          Operations,
		QualityWeight: 0.5, RedundancyWeight: 0.3, SizeWeight: 0.15, SimilarityWeight: 0.05,
		QualityThreshold: 0.7, RedundancyThreshold: 0.4, SizeThreshold: 0.4, SimilarityThreshold: 0.9,
		Bounds: Bounds{Min: 100, Max: 3000, OptimalLow: 500, OptimalHigh: 1500},
	},
	{
		Name:          Ecommerce,
		QualityWeight: 0.3, RedundancyWeight: 0.25, SizeWeight: 0.25, SimilarityWeight: 0.2,
		QualityThreshold: 0.6, RedundancyThreshold: 0.5, SizeThreshold: 0.6, SimilarityThreshold: 0.8,
		Bounds: Bounds{Min: 50, Max: 1500, OptimalLow: 200, OptimalHigh: 800},
	},
	{
		Name:          Medical,
		QualityWeight: 0.6, RedundancyWeight: 0.25, SizeWeight: 0.1, SimilarityWeight: 0.05,
		QualityThreshold: 0.8, RedundancyThreshold: 0.3, SizeThreshold: 0.5, SimilarityThreshold: 0.95,
		Bounds: Bounds{Min: 150, Max: 5000, OptimalLow: 800, OptimalHigh: 2500},
	},
}

// Builtins returns a copy of the built-in profiles in declaration order.
func Builtins() []Profile {
	out := make([]Profile, len(builtins))
	copy(out, builtins)
	return out
}

// Table is an immutable name → Profile lookup. The zero value is not usable;
// construct with NewTable.
type Table struct {
	profiles map[string]Profile
	names    []string
}

// NewTable builds a table holding the built-in profiles plus any custom ones.
// Custom names are normalized to lower case and may not shadow a built-in.
func NewTable(custom ...Profile) (*Table, error) {
	t := &Table{profiles: make(map[string]Profile, len(builtins)+len(custom))}
	for _, p := range builtins {
		t.profiles[p.Name] = p
		t.names = append(t.names, p.Name)
	}

	for _, p := range custom {
		p.Name = normalize(p.Name)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, exists := t.profiles[p.Name]; exists {
			if isBuiltin(p.Name) {
				return nil, fmt.Errorf("%w: %s", ErrReservedProfile, p.Name)
			}
			return nil, fmt.Errorf("%w: duplicate profile %q", ErrInvalidProfile, p.Name)
		}
		t.profiles[p.Name] = p
		t.names = append(t.names, p.Name)
	}

	sort.Strings(t.names[len(builtins):])
	return t, nil
}

// Resolve returns the profile registered under name. Matching ignores case
// and surrounding whitespace; an unknown or empty name yields the default
// profile.
func (t *Table) Resolve(name string) Profile {
	if p, ok := t.profiles[normalize(name)]; ok {
		return p
	}
	return t.profiles[Default]
}

// Lookup is like Resolve but reports whether name was known.
func (t *Table) Lookup(name string) (Profile, bool) {
	p, ok := t.profiles[normalize(name)]
	return p, ok
}

// Names returns the registered names: built-ins first, then custom profiles
// in lexical order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Profiles returns every profile in Names order.
func (t *Table) Profiles() []Profile {
	out := make([]Profile, 0, len(t.names))
	for _, n := range t.names {
		out = append(out, t.profiles[n])
	}
	return out
}

// Len returns the number of registered profiles.
func (t *Table) Len() int {
	return len(t.names)
}

var defaultTable, _ = NewTable()

// DefaultTable returns the table of built-in profiles.
func DefaultTable() *Table {
	return defaultTable
}

// Resolve looks name up in the built-in table.
func Resolve(name string) Profile {
	return defaultTable.Resolve(name)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isBuiltin(name string) bool {
	for _, p := range builtins {
		if p.Name == name {
			return true
		}
	}
	return false
}
