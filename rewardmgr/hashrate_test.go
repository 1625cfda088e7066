package rewardmgr

import (
	"math"
	"testing"

	"github.com/kasbot/kasbot-server/errcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHashRate(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"15 TH/s", 15e12},
		{"3.2PH", 3.2e15},
		{"500", 500},
		{"500 H/s", 500},
		{"12 kh/s", 12e3},
		{"7.5 mh", 7.5e6},
		{"1 GH/s", 1e9},
		{"2 EH/s", 2e18},
		{"my rig does 100 th", 100e12},
		{"0.5 TH 20 GH", 0.5e9},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseHashRate(tt.text)
			require.NoError(t, err)
			assert.InEpsilon(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseHashRateErrors(t *testing.T) {
	for _, text := range []string{"", "abc", "TH/s", "-"} {
		_, err := ParseHashRate(text)
		assert.ErrorIs(t, err, errcode.ErrHashRateParse, text)
	}
}

func TestParseHashRateNegative(t *testing.T) {
	for _, text := range []string{"-5 TH/s", "-0.5 PH", "hash rate -12"} {
		got, err := ParseHashRate(text)
		assert.ErrorIs(t, err, errcode.ErrInvalidInput, text)
		assert.Zero(t, got, text)
	}

	got, err := ParseHashRate("rig-a 5 TH/s")
	require.NoError(t, err)
	assert.Equal(t, 5e12, got)
}

func TestHashShare(t *testing.T) {
	share, err := HashShare(25, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.25, share)

	share, err = HashShare(100, 100)
	require.NoError(t, err)
	assert.Equal(t, 1.0, share)

	share, err = HashShare(300, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.75, share)

	share, err = HashShare(0, 100)
	require.NoError(t, err)
	assert.Zero(t, share)
}

func TestHashShareInvalid(t *testing.T) {
	tests := []struct {
		name           string
		miner, network float64
	}{
		{"zero_network", 10, 0},
		{"negative_miner", -1, 100},
		{"negative_network", 1, -100},
		{"nan", math.NaN(), 100},
		{"inf", 1, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HashShare(tt.miner, tt.network)
			assert.ErrorIs(t, err, errcode.ErrInvalidInput)
		})
	}
}

func TestEstimateHashShare(t *testing.T) {
	share, err := EstimateHashShare("1 PH/s", 4e15)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, share, 1e-12)

	_, err = EstimateHashShare("fast", 4e15)
	assert.ErrorIs(t, err, errcode.ErrHashRateParse)

	_, err = EstimateHashShare("1 PH/s", 0)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)

	_, err = EstimateHashShare("-5 TH/s", 1e15)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
}
