package domain

// QuotaLimits maps subscription tiers to their monthly scan allowance.
// Immutable configuration; not persisted per-user.
type QuotaLimits struct {
	FreeScansPerMonth int
}

// DefaultQuotaLimits returns the standard tier allowances.
func DefaultQuotaLimits() QuotaLimits {
	return QuotaLimits{
		FreeScansPerMonth: 5,
	}
}

// ForTier returns the monthly scan limit for the given tier.
// Unknown tiers fall back to the free allowance. Premium is unmetered.
func (q QuotaLimits) ForTier(tier SubscriptionTier) (limit int, unlimited bool) {
	if tier == TierPremium {
		return 0, true
	}
	return q.FreeScansPerMonth, false
}
