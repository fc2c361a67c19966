package vesting

import "time"

// Reference round indices.
const (
	Seed     RoundIndex = 0
	Private1 RoundIndex = 1
	Private2 RoundIndex = 2
)

// Month is the 30-day month the crowdsale schedule is expressed in.
const Month = 30 * 24 * time.Hour

// Epoch is the common start of all reference rounds: 2022-03-01 00:00:00 UTC.
var Epoch = time.Unix(1646092800, 0).UTC()

// ReferenceRounds returns the DDAO crowdsale round table. All rounds start at
// Epoch with no cliff; Seed vests over 24 months, Private 1 over 18 and
// Private 2 over 12.
func ReferenceRounds() []Round {
	return []Round{
		{Index: Seed, Name: "Seed", Start: Epoch, Duration: 24 * Month},
		{Index: Private1, Name: "Private 1", Start: Epoch, Duration: 18 * Month},
		{Index: Private2, Name: "Private 2", Start: Epoch, Duration: 12 * Month},
	}
}
