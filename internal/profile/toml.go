package profile

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// fileProfile is the TOML shape of a custom profile:
//
//	[profiles.legal]
//	quality_weight = 0.5
//	...
//	min_length = 100
//	max_length = 4000
//	optimal_length = [600, 2000]
type fileProfile struct {
	QualityWeight       float64 `toml:"quality_weight"`
	RedundancyWeight    float64 `toml:"redundancy_weight"`
	SizeWeight          float64 `toml:"size_weight"`
	SimilarityWeight    float64 `toml:"similarity_weight"`
	QualityThreshold    float64 `toml:"quality_threshold"`
	RedundancyThreshold float64 `toml:"redundancy_threshold"`
	SizeThreshold       float64 `toml:"size_threshold"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MinLength           int     `toml:"min_length"`
	MaxLength           int     `toml:"max_length"`
	OptimalLength       []int   `toml:"optimal_length"`
}

// DecodeTOML reads custom profiles from r. Profiles are returned sorted by
// name and are validated individually.
func DecodeTOML(r io.Reader) ([]Profile, error) {
	var file struct {
		Profiles map[string]fileProfile `toml:"profiles"`
	}
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: decode toml: %v", ErrInvalidProfile, err)
	}

	names := make([]string, 0, len(file.Profiles))
	for name := range file.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Profile, 0, len(names))
	for _, name := range names {
		fp := file.Profiles[name]
		if len(fp.OptimalLength) != 2 {
			return nil, fmt.Errorf("%w: %s: optimal_length must have exactly two values", ErrInvalidProfile, name)
		}
		p := Profile{
			Name:                normalize(name),
			QualityWeight:       fp.QualityWeight,
			RedundancyWeight:    fp.RedundancyWeight,
			SizeWeight:          fp.SizeWeight,
			SimilarityWeight:    fp.SimilarityWeight,
			QualityThreshold:    fp.QualityThreshold,
			RedundancyThreshold: fp.RedundancyThreshold,
			SizeThreshold:       fp.SizeThreshold,
			SimilarityThreshold: fp.SimilarityThreshold,
			Bounds: Bounds{
				Min:         fp.MinLength,
				Max:         fp.MaxLength,
				OptimalLow:  fp.OptimalLength[0],
				OptimalHigh: fp.OptimalLength[1],
			},
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadTable builds a Table from the built-ins plus the profiles declared in
// the TOML file at path. An empty path yields the built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles file: %w", err)
	}
	defer f.Close()

	custom, err := DecodeTOML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewTable(custom...)
}
