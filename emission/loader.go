package emission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kasbot/kasbot-server/errcode"
)

type fileTable struct {
	TotalSupply uint64      `json:"total_supply" toml:"total_supply"`
	Phases      []filePhase `json:"phases" toml:"phases"`
}

type filePhase struct {
	Name         string  `json:"name" toml:"name"`
	Start        uint64  `json:"start" toml:"start"`
	Stop         *uint64 `json:"stop" toml:"stop"`
	RewardPerDAA uint64  `json:"reward_per_daa" toml:"reward_per_daa"`
}

// LoadTable reads an emission table from a TOML or JSON file.  The stop of
// the last phase may be omitted, in which case the phase is open ended.
func LoadTable(path string, rule BoundaryRule) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("emission: table path required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("emission: read table: %w", err)
	}

	var parsed fileTable
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&parsed); err != nil {
			return nil, fmt.Errorf("emission: decode table json: %w", err)
		}
	case ".toml", ".tml":
		meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&parsed)
		if err != nil {
			return nil, fmt.Errorf("emission: decode table toml: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys in emission table: %v", errcode.ErrConfiguration, undecoded)
		}
	default:
		return nil, fmt.Errorf("emission: unsupported table format %q", ext)
	}

	phases, err := parsed.toPhases()
	if err != nil {
		return nil, err
	}
	log.Infof("Loading emission table from %v", path)
	return NewTable(phases, parsed.TotalSupply, rule)
}

func (f *fileTable) toPhases() ([]Phase, error) {
	phases := make([]Phase, 0, len(f.Phases))
	for i, p := range f.Phases {
		stop := uint64(math.MaxUint64)
		switch {
		case p.Stop != nil:
			stop = *p.Stop
		case i != len(f.Phases)-1:
			return nil, fmt.Errorf("%w: phase %d (%q) has no stop", errcode.ErrConfiguration, i, p.Name)
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("phase-%d", i)
		}
		phases = append(phases, Phase{
			Name:         name,
			Start:        p.Start,
			Stop:         stop,
			RewardPerDAA: p.RewardPerDAA,
		})
	}
	return phases, nil
}
