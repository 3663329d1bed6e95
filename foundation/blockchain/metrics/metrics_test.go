package metrics_test

import (
	"testing"

	"github.com/checoin/checoin/foundation/blockchain/metrics"
)

func Test_Collectors(t *testing.T) {
	m := metrics.New()

	m.Chain(12, 3)
	m.BlockAccepted()
	m.BlockAccepted()
	m.BlockRejected("gossip")
	m.MintAttempt("solved")

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Should be able to gather the metrics: %v", err)
	}

	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				values[mf.GetName()] = metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				values[mf.GetName()] += metric.GetCounter().GetValue()
			}
		}
	}

	exp := map[string]float64{
		"checoin_chain_height":                12,
		"checoin_chain_difficulty":            3,
		"checoin_chain_blocks_accepted_total": 2,
		"checoin_chain_blocks_rejected_total": 1,
		"checoin_minter_attempts_total":       1,
	}

	for name, v := range exp {
		if values[name] != v {
			t.Logf("got: %v", values[name])
			t.Logf("exp: %v", v)
			t.Fatalf("Should have the right value for %s.", name)
		}
	}
}
