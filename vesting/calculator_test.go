package vesting

import (
	"encoding/json"
	"math/big"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
)

// Checkpoint instants used by the original crowdsale test suite.
var (
	oneMonthPass        = time.Unix(1648684800, 0)
	sixMonthPass        = time.Unix(1661644800, 0)
	nineMonthPass       = time.Unix(1669420800, 0)
	twelveMonthPass     = time.Unix(1677196800, 0)
	eighteenMonthPass   = time.Unix(1692748800, 0)
	twentyFourMonthPass = time.Unix(1708300800, 0)
)

var (
	seedWallet     = address.MustParse("0xECCFbC5B04Da35D611EF8b51099fA5Bc6639d73b")
	private1Wallet = address.MustParse("0x0026Ec57900Be57503Efda250328507156dAC982")
	payer1         = address.MustParse("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	outsider       = address.MustParse("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

func amount(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad amount %q", s)
	return v
}

func testCalculator(t *testing.T) *Calculator {
	t.Helper()
	table := NewAllocationTable()
	require.NoError(t, table.SetString(Seed, seedWallet, "625000000000000000000000"))
	require.NoError(t, table.SetString(Seed, payer1, "625000000000000000000000"))
	require.NoError(t, table.SetString(Private1, private1Wallet, "93750000000000000000000"))
	require.NoError(t, table.SetString(Private1, payer1, "31250000000000000000000"))
	require.NoError(t, table.SetString(Private2, payer1, "2170212765957400000000"))

	schedule, err := NewSchedule(ReferenceRounds(), table)
	require.NoError(t, err)
	calc, err := NewCalculator(schedule)
	require.NoError(t, err)
	return calc
}

func TestUnlockedAmount_Scenarios(t *testing.T) {
	calc := testCalculator(t)

	tests := []struct {
		name   string
		wallet address.Address
		round  RoundIndex
		at     time.Time
		want   string
	}{
		{"seed full at 24 months", seedWallet, Seed, twentyFourMonthPass, "625000000000000000000000"},
		{"seed one second after start", seedWallet, Seed, Epoch.Add(time.Second), "10046939300411522"},
		{"seed one second before start", seedWallet, Seed, Epoch.Add(-time.Second), "0"},
		{"seed exactly at start", seedWallet, Seed, Epoch, "0"},
		{"seed after one month", payer1, Seed, oneMonthPass, "26041666666666666666666"},
		{"seed half at 12 months", payer1, Seed, twelveMonthPass, "312500000000000000000000"},
		{"private 1 third at 6 months", private1Wallet, Private1, sixMonthPass, "31250000000000000000000"},
		{"private 1 two thirds at 12 months", private1Wallet, Private1, twelveMonthPass, "62500000000000000000000"},
		{"private 1 full at 18 months", private1Wallet, Private1, eighteenMonthPass, "93750000000000000000000"},
		{"private 1 half at 9 months", payer1, Private1, nineMonthPass, "15625000000000000000000"},
		{"private 2 half at 6 months", payer1, Private2, sixMonthPass, "1085106382978700000000"},
		{"private 2 saturates", payer1, Private2, twentyFourMonthPass, "2170212765957400000000"},
		{"non participant seed", outsider, Seed, oneMonthPass, "0"},
		{"non participant private 1", seedWallet, Private1, oneMonthPass, "0"},
		{"far future", seedWallet, Seed, time.Unix(1<<40, 0), "625000000000000000000000"},
		{"before unix epoch", seedWallet, Seed, time.Unix(-1<<40, 0), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.UnlockedAmount(tt.wallet, tt.round, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestUnlockedAmount_UnsupportedRound(t *testing.T) {
	calc := testCalculator(t)

	_, err := calc.UnlockedAmount(payer1, 100, time.Unix(0, 0))
	assert.ErrorIs(t, err, ErrUnsupportedRound)

	_, err = calc.TotalAllocation(payer1, 3)
	assert.ErrorIs(t, err, ErrUnsupportedRound)
}

type checkpointFile struct {
	Allocations map[string]map[string]string `json:"allocations"`
	Checkpoints []struct {
		Wallet string `json:"wallet"`
		Round  int    `json:"round"`
		At     int64  `json:"at"`
		Prefix string `json:"prefix"`
	} `json:"checkpoints"`
}

// TestUnlockedAmount_Checkpoints replays the original per-wallet fixture
// table. Expected values there were recorded to 14 leading digits.
func TestUnlockedAmount_Checkpoints(t *testing.T) {
	data, err := os.ReadFile("testdata/checkpoints.json")
	require.NoError(t, err)

	var fixtures checkpointFile
	require.NoError(t, json.Unmarshal(data, &fixtures))
	require.Len(t, fixtures.Checkpoints, 324)

	table := NewAllocationTable()
	for roundStr, byWallet := range fixtures.Allocations {
		idx, err := strconv.Atoi(roundStr)
		require.NoError(t, err)
		for w, a := range byWallet {
			wallet, err := address.ParseStrict(w)
			require.NoError(t, err)
			require.NoError(t, table.SetString(RoundIndex(idx), wallet, a))
		}
	}
	schedule, err := NewSchedule(ReferenceRounds(), table)
	require.NoError(t, err)
	calc, err := NewCalculator(schedule)
	require.NoError(t, err)

	for i, cp := range fixtures.Checkpoints {
		wallet := address.MustParse(cp.Wallet)
		got, err := calc.UnlockedAmount(wallet, RoundIndex(cp.Round), time.Unix(cp.At, 0))
		require.NoError(t, err)

		s := got.String()
		if len(s) > 14 {
			s = s[:14]
		}
		assert.Equal(t, cp.Prefix, s, "checkpoint %d: wallet %s round %d at %d", i+1, cp.Wallet, cp.Round, cp.At)
	}
}

func TestUnlocked_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	for _, r := range ReferenceRounds() {
		start := r.EffectiveStart().Unix()
		end := r.End().Unix()
		duration := end - start

		for i := 0; i < 50; i++ {
			// Up to 10^7 tokens at 18 decimals.
			total := new(big.Int).Mul(big.NewInt(rng.Int63n(10_000_000)+1), unit)
			total.Add(total, big.NewInt(rng.Int63n(1_000_000)))

			for _, at := range []int64{
				start - 86400, start, start + 1,
				start + rng.Int63n(duration), start + duration/2, start + rng.Int63n(duration),
				end - 1, end, end + 1, end + 86400,
			} {
				got := Unlocked(total, r, time.Unix(at, 0))

				assert.True(t, got.Cmp(total) <= 0, "bounded by allocation")
				assert.True(t, got.Sign() >= 0)

				elapsed := at - start
				switch {
				case elapsed <= 0:
					assert.Zero(t, got.Sign(), "zero before start")
				case elapsed >= duration:
					assert.Equal(t, total.String(), got.String(), "full after end")
				default:
					want := new(big.Int).Mul(total, big.NewInt(elapsed))
					want.Quo(want, big.NewInt(duration))
					assert.Equal(t, want.String(), got.String(), "floor(total*elapsed/duration)")
				}
			}
		}
	}
}

func TestUnlocked_Monotonic(t *testing.T) {
	r := ReferenceRounds()[0]
	total := amount(t, "625000000000000000000017")

	prev := new(big.Int)
	step := r.Duration / 997
	for at := r.Start.Add(-step); !at.After(r.End().Add(step)); at = at.Add(step) {
		got := Unlocked(total, r, at)
		require.True(t, got.Cmp(prev) >= 0, "unlocked decreased at %s", at)
		prev = got
	}
	assert.Equal(t, total.String(), prev.String())
}

func TestUnlocked_CliffAndInitialUnlock(t *testing.T) {
	r := Round{
		Index:            9,
		Start:            Epoch,
		Cliff:            3 * Month,
		Duration:         10 * time.Second,
		InitialUnlockBps: 2500,
	}
	total := big.NewInt(1000)

	assert.Equal(t, int64(0), Unlocked(total, r, Epoch.Add(time.Second)).Int64(), "inside cliff")
	assert.Equal(t, int64(0), Unlocked(total, r, r.EffectiveStart()).Int64(), "at effective start")
	assert.Equal(t, int64(250+75), Unlocked(total, r, r.EffectiveStart().Add(time.Second)).Int64())
	assert.Equal(t, int64(250+375), Unlocked(total, r, r.EffectiveStart().Add(5*time.Second)).Int64())
	assert.Equal(t, int64(1000), Unlocked(total, r, r.End()).Int64())
}

func TestUnlocked_NilAndZeroTotal(t *testing.T) {
	r := ReferenceRounds()[0]
	assert.Zero(t, Unlocked(nil, r, twelveMonthPass).Sign())
	assert.Zero(t, Unlocked(new(big.Int), r, twelveMonthPass).Sign())
}

func TestUnlocked_DoesNotAliasTotal(t *testing.T) {
	r := ReferenceRounds()[0]
	total := big.NewInt(1_000_000)

	got := Unlocked(total, r, twentyFourMonthPass)
	got.SetInt64(1)
	assert.Equal(t, int64(1_000_000), total.Int64())
}

func TestVestedFraction(t *testing.T) {
	calc := testCalculator(t)

	tests := []struct {
		round RoundIndex
		at    time.Time
		want  uint16
	}{
		{Seed, Epoch, 0},
		{Seed, sixMonthPass, 2500},
		{Seed, eighteenMonthPass, 7500},
		{Private1, sixMonthPass, 3333},
		{Private1, twelveMonthPass, 6666},
		{Private2, sixMonthPass, 5000},
		{Private2, twentyFourMonthPass, 10000},
	}
	for _, tt := range tests {
		got, err := calc.VestedFraction(tt.round, tt.at)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "round %d at %d", tt.round, tt.at.Unix())
	}

	_, err := calc.VestedFraction(100, Epoch)
	assert.ErrorIs(t, err, ErrUnsupportedRound)
}

func TestCheckpoints(t *testing.T) {
	calc := testCalculator(t)

	got, err := calc.Checkpoints(Seed, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, want := range []time.Time{sixMonthPass, twelveMonthPass, eighteenMonthPass, twentyFourMonthPass} {
		assert.Equal(t, want.Unix(), got[i].Unix())
	}

	got, err = calc.Checkpoints(Private1, 3)
	require.NoError(t, err)
	assert.Equal(t, eighteenMonthPass.Unix(), got[2].Unix())

	got, err = calc.Checkpoints(Seed, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = calc.Checkpoints(Private2, MaxCheckpoints)
	require.NoError(t, err)
	assert.Len(t, got, MaxCheckpoints)

	_, err = calc.Checkpoints(Seed, MaxCheckpoints+1)
	assert.ErrorIs(t, err, ErrTooManyCheckpoints)
	_, err = calc.Checkpoints(Seed, MaxCheckpoints*1000)
	assert.ErrorIs(t, err, ErrTooManyCheckpoints)

	_, err = calc.Checkpoints(7, 4)
	assert.ErrorIs(t, err, ErrUnsupportedRound)
}

func TestNewCalculator_NilSchedule(t *testing.T) {
	_, err := NewCalculator(nil)
	assert.ErrorIs(t, err, ErrNilParam)
}
