package ledger

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bitfsorg/crowdsale-vesting-go/vesting"
)

const (
	namespace = "crowdsale"
	subsystem = "ledger"
)

// Claim outcomes used as the result label.
const (
	resultOK             = "ok"
	resultBlocked        = "blocked"
	resultUnsupported    = "unsupported_round"
	resultNotWhitelisted = "not_whitelisted"
	resultNothing        = "nothing_to_claim"
	resultTransferFailed = "transfer_failed"
	resultError          = "error"
)

var (
	claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "claims_total",
		Help:      "Claim attempts by round and result",
	}, []string{"round", "result"})

	blockedWallets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "blocked_wallets",
		Help:      "Wallets added to the blacklist minus wallets removed since start",
	})
)

// roundUnsupported labels claims against rounds the schedule does not know.
const roundUnsupported = "unsupported"

func roundLabel(schedule *vesting.Schedule, round vesting.RoundIndex) string {
	if _, err := schedule.Round(round); err != nil {
		return roundUnsupported
	}
	return strconv.FormatUint(uint64(round), 10)
}

func reportClaim(round, result string) {
	claimsTotal.WithLabelValues(round, result).Inc()
}
