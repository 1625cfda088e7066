package emission

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/kasbot/kasbot-server/errcode"
)

// SompiPerKaspa is the number of sompi in one KAS.
const SompiPerKaspa = 100_000_000

// Phase is one constant-rate segment of the emission curve.  It covers the
// half-open DAA score range [Start, Stop) and mints RewardPerDAA sompi for
// every unit the DAA score advances inside the range.
type Phase struct {
	Name         string
	Start        uint64
	Stop         uint64
	RewardPerDAA uint64
}

// contains reports whether the DAA score lies inside the phase.
func (p *Phase) contains(daaScore uint64) bool {
	return daaScore >= p.Start && daaScore < p.Stop
}

// BoundaryRule selects how a phase that is crossed by an interval is counted.
type BoundaryRule int

const (
	// BoundaryAdditive counts every DAA unit of the interval exactly once,
	// so that [a,c) == [a,b) + [b,c).
	BoundaryAdditive BoundaryRule = iota

	// BoundaryLegacy drops the last DAA unit of every phase the interval
	// leaves.  It reproduces the numbers published by the first bot
	// deployment.
	BoundaryLegacy
)

var boundaryRuleStrings = map[BoundaryRule]string{
	BoundaryAdditive: "additive",
	BoundaryLegacy:   "legacy",
}

// String returns the BoundaryRule in human-readable form.
func (r BoundaryRule) String() string {
	if s, ok := boundaryRuleStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("Unknown BoundaryRule (%d)", int(r))
}

// Table is a validated, immutable emission schedule.  All methods are safe for
// concurrent use.
type Table struct {
	phases      []Phase
	totalSupply uint64
	rule        BoundaryRule
}

// NewTable validates the phases against the declared total supply and
// returns the table.  The phases must start at DAA score 0, be contiguous
// and strictly increasing, and the declared total supply must equal the sum
// of RewardPerDAA*(Stop-Start) over all phases.  Every violation is reported
// as errcode.ErrConfiguration.
func NewTable(phases []Phase, totalSupply uint64, rule BoundaryRule) (*Table, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("%w: emission table has no phases", errcode.ErrConfiguration)
	}
	if _, ok := boundaryRuleStrings[rule]; !ok {
		return nil, fmt.Errorf("%w: unknown boundary rule %d", errcode.ErrConfiguration, int(rule))
	}
	if phases[0].Start != 0 {
		return nil, fmt.Errorf("%w: first phase %q starts at %d instead of 0",
			errcode.ErrConfiguration, phases[0].Name, phases[0].Start)
	}

	var sum uint64
	for i := range phases {
		p := &phases[i]
		if p.Stop <= p.Start {
			return nil, fmt.Errorf("%w: phase %d (%q) has empty or decreasing range [%d, %d)",
				errcode.ErrConfiguration, i, p.Name, p.Start, p.Stop)
		}
		if i > 0 && phases[i-1].Stop != p.Start {
			return nil, fmt.Errorf("%w: phase %d (%q) starts at %d but phase %d stops at %d",
				errcode.ErrConfiguration, i, p.Name, p.Start, i-1, phases[i-1].Stop)
		}

		hi, minted := bits.Mul64(p.RewardPerDAA, p.Stop-p.Start)
		if hi != 0 {
			return nil, fmt.Errorf("%w: phase %d (%q) emission overflows", errcode.ErrConfiguration, i, p.Name)
		}
		var carry uint64
		sum, carry = bits.Add64(sum, minted, 0)
		if carry != 0 {
			return nil, fmt.Errorf("%w: total emission overflows at phase %d (%q)",
				errcode.ErrConfiguration, i, p.Name)
		}
	}

	if sum != totalSupply {
		return nil, fmt.Errorf("%w: declared total supply %d does not match the phases (%d)",
			errcode.ErrConfiguration, totalSupply, sum)
	}

	table := &Table{
		phases:      make([]Phase, len(phases)),
		totalSupply: totalSupply,
		rule:        rule,
	}
	copy(table.phases, phases)

	log.Debugf("Loaded emission table: %d phases, total supply %d sompi, %v boundaries",
		len(phases), totalSupply, rule)

	return table, nil
}

// Phases returns a copy of the phases in DAA score order.
func (t *Table) Phases() []Phase {
	res := make([]Phase, len(t.phases))
	copy(res, t.phases)
	return res
}

// TotalSupply returns the protocol maximum supply in sompi.
func (t *Table) TotalSupply() uint64 {
	return t.totalSupply
}

// FinalPhase returns the phase with the greatest Stop.
func (t *Table) FinalPhase() Phase {
	return t.phases[len(t.phases)-1]
}

// Rule returns the boundary rule the table integrates with.
func (t *Table) Rule() BoundaryRule {
	return t.rule
}

// phaseIndex returns the index of the phase containing daaScore, or
// len(t.phases) when the score lies past the last phase.
func (t *Table) phaseIndex(daaScore uint64) int {
	return sort.Search(len(t.phases), func(i int) bool {
		return t.phases[i].Stop > daaScore
	})
}

// crossed returns the number of DAA units counted when an interval leaves a
// phase after covering n of its units.
func (t *Table) crossed(n uint64) uint64 {
	if t.rule == BoundaryLegacy {
		return n - 1
	}
	return n
}

// RewardsInRange returns the sompi minted while the DAA score advances over
// [start, end).  Nothing is minted once start has reached the final phase.
// An empty or inverted interval yields 0.
func (t *Table) RewardsInRange(start, end uint64) uint64 {
	if end <= start {
		return 0
	}
	if start >= t.FinalPhase().Start {
		return 0
	}

	var total uint64
	for i := t.phaseIndex(start); i < len(t.phases); i++ {
		p := &t.phases[i]
		startInside := p.contains(start)
		endInside := p.contains(end)

		switch {
		case startInside && endInside:
			return total + (end-start)*p.RewardPerDAA

		case startInside:
			total += t.crossed(p.Stop-start) * p.RewardPerDAA

		case endInside:
			return total + (end-p.Start)*p.RewardPerDAA

		default:
			total += t.crossed(p.Stop-p.Start) * p.RewardPerDAA
		}
	}

	return total
}

// CirculatingSupply returns the sompi minted from genesis up to daaScore.
// It saturates to TotalSupply once daaScore reaches the final phase.
func (t *Table) CirculatingSupply(daaScore uint64) uint64 {
	if daaScore >= t.FinalPhase().Start {
		return t.totalSupply
	}
	return t.RewardsInRange(0, daaScore)
}

// SompiToKaspa converts an amount of sompi to KAS.
func SompiToKaspa(sompi uint64) float64 {
	return float64(sompi) / SompiPerKaspa
}
