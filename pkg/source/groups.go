package source

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/spreadline/pkg/errors"
	"github.com/matzehuels/spreadline/pkg/network"
)

// ReadGroupsYAML parses explicit five-tier group assignments per time
// label:
//
//	"2020":
//	  - [far-a, far-b]   # outside far
//	  - [near-a]         # outside near
//	  - [ego]            # ego tier
//	  - []               # inside near
//	  - [far-c]          # inside far
//
// Each label must carry exactly five member lists, in tier order.
func ReadGroupsYAML(r io.Reader) (map[string][network.NumTiers][]string, error) {
	raw := map[string][][]string{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse groups yaml")
	}

	out := make(map[string][network.NumTiers][]string, len(raw))
	for label, tiers := range raw {
		if len(tiers) != network.NumTiers {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"label %q has %d tiers, want %d", label, len(tiers), network.NumTiers)
		}
		var fixed [network.NumTiers][]string
		copy(fixed[:], tiers)
		out[label] = fixed
	}
	return out, nil
}

// OpenGroupsYAML is a convenience wrapper reading from a file path.
func OpenGroupsYAML(path string) (map[string][network.NumTiers][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGroupsYAML(f)
}
