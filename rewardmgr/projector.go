package rewardmgr

import (
	"fmt"
	"math"

	"github.com/kasbot/kasbot-server/emission"
	"github.com/kasbot/kasbot-server/errcode"
)

// Horizon is a forward window over which rewards are projected, measured in
// DAA units.  One DAA unit is taken to be one second of chain time.
type Horizon struct {
	Label string
	DAA   uint64
}

// Horizons are the projection windows in display order.
var Horizons = []Horizon{
	{Label: "second", DAA: 1},
	{Label: "minute", DAA: 60},
	{Label: "hour", DAA: 60 * 60},
	{Label: "day", DAA: 60 * 60 * 24},
	{Label: "week", DAA: 60 * 60 * 24 * 7},
	{Label: "month", DAA: emission.DeflationaryMonth},
	{Label: "year", DAA: emission.DeflationaryMonth * 12},
}

// Projection maps a horizon label to the KAS expected over that horizon.
type Projection map[string]float64

// HorizonReward is a single entry of a Projection.
type HorizonReward struct {
	Label  string
	Amount float64
}

// Ordered returns the entries of the projection in horizon order.
func (p Projection) Ordered() []HorizonReward {
	res := make([]HorizonReward, 0, len(Horizons))
	for _, h := range Horizons {
		amount, ok := p[h.Label]
		if !ok {
			continue
		}
		res = append(res, HorizonReward{Label: h.Label, Amount: amount})
	}
	return res
}

// Project returns the KAS a miner holding hashShare of the network is
// expected to earn over every horizon starting at currentDAA.
func Project(table *emission.Table, currentDAA uint64, hashShare float64) (Projection, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil emission table", errcode.ErrConfiguration)
	}
	if math.IsNaN(hashShare) || hashShare < 0 || hashShare > 1 {
		return nil, fmt.Errorf("%w: hash share %v is outside [0, 1]", errcode.ErrInvalidInput, hashShare)
	}

	res := make(Projection, len(Horizons))
	for _, h := range Horizons {
		end := currentDAA + h.DAA
		if end < currentDAA {
			end = math.MaxUint64
		}
		sompi := table.RewardsInRange(currentDAA, end)
		res[h.Label] = float64(sompi) * hashShare / emission.SompiPerKaspa
	}
	return res, nil
}
