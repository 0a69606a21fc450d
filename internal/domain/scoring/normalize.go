package scoring

import "math"

// Feature names understood by the normalizer. Unknown names fall through
// to the symmetric linear rule.
const (
	FeatureICR            = "icr"
	FeatureDebtToEBITDA   = "debt_to_ebitda"
	FeatureCurrentRatio   = "current_ratio"
	FeatureRevenueYoY     = "rev_yoy"
	FeatureAltmanZ        = "altman_z"
	FeatureVolatility30d  = "vol_30d"
	FeatureMaxDrawdown30d = "max_drawdown_30d"
	FeatureBeta180d       = "beta_180d"
)

// Normalize maps a raw feature value onto a bounded, comparable scale
// using a rule selected by feature name. Missing values (NaN) normalize
// to 0 so an absent feature contributes nothing.
func Normalize(value float64, feature string) float64 {
	if math.IsNaN(value) {
		return 0.0
	}

	switch feature {
	case FeatureICR:
		// Logistic curve centered at 2: a moderate coverage ratio sits at
		// the midpoint, extremes saturate.
		v := clamp(value, -10, 50)
		return 1 / (1 + math.Exp(-0.2*(v-2)))

	case FeatureDebtToEBITDA:
		// Monotonically decreasing; asymptotes toward 0 as leverage grows.
		v := clamp(value, 0, 50)
		return 1 - math.Tanh(v/10)

	case FeatureCurrentRatio:
		// Linear rescale of [0,10] onto [0,1].
		v := clamp(value, 0, 10)
		return v / 10

	case FeatureVolatility30d:
		// Compressive log transform; only magnitude matters.
		v := clamp(value, 0, 1e6)
		return math.Log1p(v)

	case FeatureMaxDrawdown30d:
		// Concave: small losses are penalized proportionally more.
		v := clamp(value, 0, 1)
		return math.Sqrt(v)

	default:
		// Symmetric linear rescale of [-3,3] onto [-1,1].
		v := clamp(value, -3, 3)
		return v / 3
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sigmoid maps the real line onto (0,1).
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
