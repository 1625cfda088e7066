package rewardmgr

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kasbot/kasbot-server/errcode"
)

var hashRateNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// hashRateUnits is checked in order, the first suffix found anywhere in the
// expression wins.
var hashRateUnits = []struct {
	suffix     string
	multiplier float64
}{
	{"KH", 1e3},
	{"MH", 1e6},
	{"GH", 1e9},
	{"TH", 1e12},
	{"PH", 1e15},
	{"EH", 1e18},
	{"H", 1},
}

// ParseHashRate converts a free text hash rate such as "15 TH/s" or "3.2PH"
// to hashes per second.  The first numeric token is the magnitude.  A bare
// number without a unit is read as hashes per second.  A negative magnitude
// is invalid input.
func ParseHashRate(text string) (float64, error) {
	token := hashRateNumber.FindString(text)
	if token == "" {
		return 0, fmt.Errorf("%w: no number in %q", errcode.ErrHashRateParse, text)
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errcode.ErrHashRateParse, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: negative hash rate %q", errcode.ErrInvalidInput, text)
	}

	upper := strings.ToUpper(text)
	for _, unit := range hashRateUnits {
		if strings.Contains(upper, unit.suffix) {
			return value * unit.multiplier, nil
		}
	}
	return value, nil
}

// HashShare returns the fraction of the network a miner represents.  A miner
// claiming more than the whole network is counted against the network plus
// itself so the share stays below 1.
func HashShare(minerHashRate, networkHashRate float64) (float64, error) {
	if !validRate(minerHashRate) || !validRate(networkHashRate) {
		return 0, fmt.Errorf("%w: hash rates must be finite and non-negative (miner %v, network %v)",
			errcode.ErrInvalidInput, minerHashRate, networkHashRate)
	}
	if networkHashRate == 0 {
		return 0, fmt.Errorf("%w: network hash rate is zero", errcode.ErrInvalidInput)
	}

	if minerHashRate <= networkHashRate {
		return minerHashRate / networkHashRate, nil
	}
	return minerHashRate / (minerHashRate + networkHashRate), nil
}

// EstimateHashShare parses a hash rate expression and returns its share of
// the network hash rate.
func EstimateHashShare(minerHashRateText string, networkHashRate float64) (float64, error) {
	miner, err := ParseHashRate(minerHashRateText)
	if err != nil {
		return 0, err
	}
	return HashShare(miner, networkHashRate)
}

func validRate(rate float64) bool {
	return !math.IsNaN(rate) && !math.IsInf(rate, 0) && rate >= 0
}
