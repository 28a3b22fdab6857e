package domain

// Tier selects the capability/cost level of the backend models used for a
// call. Which concrete model variants a tier maps to is the provider's
// business.
type Tier string

const (
	// TierLite favors latency and cost; extended reasoning is disabled.
	TierLite Tier = "lite"
	// TierStandard is the default balanced tier.
	TierStandard Tier = "standard"
	// TierPro favors answer quality over latency.
	TierPro Tier = "pro"
)

// NormalizeTier maps unknown or empty tier names to TierStandard.
func NormalizeTier(t Tier) Tier {
	switch t {
	case TierLite, TierStandard, TierPro:
		return t
	default:
		return TierStandard
	}
}
