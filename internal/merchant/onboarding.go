package merchant

const (
	StepProfile  = 0
	StepWallet   = 1
	StepBranding = 2
	StepComplete = 3

	minPublicNameLen = 2
)

// ComputeInitialStep decides where onboarding resumes. The public name and the
// settlement wallet are re-checked every time; stored progress only matters
// once both are present, and then never resumes below branding.
func ComputeInitialStep(m Merchant) int {
	if m.OnboardingCompletedAt != nil {
		return StepComplete
	}
	if len([]rune(m.PublicName)) < minPublicNameLen {
		return StepProfile
	}
	if m.SettlementWallet == "" {
		return StepWallet
	}
	return max(StepBranding, min(StepComplete, m.OnboardingStep))
}

// CanCreateLinks reports whether the merchant has cleared the name and wallet gates.
func CanCreateLinks(m Merchant) bool {
	return ComputeInitialStep(m) >= StepBranding
}

// advance never lets the stored step move backwards.
func advance(m *Merchant, step int) {
	if step > StepComplete {
		step = StepComplete
	}
	if step > m.OnboardingStep {
		m.OnboardingStep = step
	}
}
