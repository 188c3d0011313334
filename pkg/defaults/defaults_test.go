package defaults

import (
	"strings"
	"testing"
)

func TestUserAgentCarriesVersion(t *testing.T) {
	if !strings.HasPrefix(UserAgent, "ShadowProbe/") {
		t.Errorf("UserAgent = %q, want ShadowProbe/ prefix", UserAgent)
	}
	if !strings.HasSuffix(UserAgent, Version) {
		t.Errorf("UserAgent = %q, want version suffix %q", UserAgent, Version)
	}
}

func TestConcurrencyTiersOrdered(t *testing.T) {
	tiers := []int{ConcurrencyMinimal, ConcurrencyStealth, ConcurrencyMedium, ConcurrencyDeep, ConcurrencyScan, ConcurrencyFast}
	for i := 1; i < len(tiers); i++ {
		if tiers[i] <= tiers[i-1] {
			t.Errorf("tier %d (%d) not greater than tier %d (%d)", i, tiers[i], i-1, tiers[i-1])
		}
	}
}

func TestDepthTiersOrdered(t *testing.T) {
	if !(DepthShallow < DepthStandard && DepthStandard < DepthDeep) {
		t.Errorf("depth tiers out of order: %d %d %d", DepthShallow, DepthStandard, DepthDeep)
	}
}
