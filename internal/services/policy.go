package services

import "github.com/facturaia/invoice-trust-service/internal/models"

// ValidationPolicy holds the tunable thresholds of the trust layer. The
// defaults match accounting practice: 1 cent of rounding slack on amounts and
// a heavy weight on math validation when fusing confidence.
type ValidationPolicy struct {
	// AmountTolerance is the maximum difference treated as rounding noise.
	AmountTolerance float64

	// Fusion weights for the combined confidence score.
	ValidationWeight float64
	ExtractionWeight float64

	// Review routing thresholds.
	AutoApproveThreshold float64
	VerifyThreshold      float64
}

// DefaultPolicy returns the standard policy.
func DefaultPolicy() ValidationPolicy {
	return ValidationPolicy{
		AmountTolerance:      0.01,
		ValidationWeight:     0.7,
		ExtractionWeight:     0.3,
		AutoApproveThreshold: 0.95,
		VerifyThreshold:      0.85,
	}
}

// PolicyFromConfig builds a policy from configuration, falling back to the
// defaults for any knob left unset.
func PolicyFromConfig(cfg models.ValidationConfig) ValidationPolicy {
	p := DefaultPolicy()
	if cfg.AmountTolerance > 0 {
		p.AmountTolerance = cfg.AmountTolerance
	}
	if cfg.ValidationWeight > 0 {
		p.ValidationWeight = cfg.ValidationWeight
	}
	if cfg.ExtractionWeight > 0 {
		p.ExtractionWeight = cfg.ExtractionWeight
	}
	if cfg.AutoApproveThreshold > 0 {
		p.AutoApproveThreshold = cfg.AutoApproveThreshold
	}
	if cfg.VerifyThreshold > 0 {
		p.VerifyThreshold = cfg.VerifyThreshold
	}
	return p
}

// FuseConfidence combines validation and extraction confidence into the
// overall score used for review routing.
func (p ValidationPolicy) FuseConfidence(validation, extraction float64) float64 {
	return validation*p.ValidationWeight + extraction*p.ExtractionWeight
}
