package scoring_test

import (
	"math"
	"testing"

	scoring "github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given the feature normalizer", t, func() {
		Convey("When the value is missing (NaN)", func() {
			for _, name := range []string{
				scoring.FeatureICR,
				scoring.FeatureDebtToEBITDA,
				scoring.FeatureCurrentRatio,
				scoring.FeatureVolatility30d,
				scoring.FeatureMaxDrawdown30d,
				"something_unknown",
			} {
				So(scoring.Normalize(math.NaN(), name), ShouldEqual, 0.0)
			}
		})

		Convey("When normalizing interest coverage (logistic)", func() {
			Convey("Then the curve midpoint sits at icr=2", func() {
				So(scoring.Normalize(2, scoring.FeatureICR), ShouldEqual, 0.5)
			})

			Convey("Then output stays within (0,1) and saturates at extremes", func() {
				So(scoring.Normalize(-1000, scoring.FeatureICR), ShouldBeGreaterThan, 0)
				So(scoring.Normalize(-1000, scoring.FeatureICR), ShouldBeLessThan, 0.1)
				So(scoring.Normalize(1000, scoring.FeatureICR), ShouldBeGreaterThan, 0.9)
				So(scoring.Normalize(1000, scoring.FeatureICR), ShouldBeLessThan, 1)
			})

			Convey("Then it is monotonically non-decreasing", func() {
				prev := scoring.Normalize(-15, scoring.FeatureICR)
				for v := -14.0; v <= 60; v++ {
					cur := scoring.Normalize(v, scoring.FeatureICR)
					So(cur, ShouldBeGreaterThanOrEqualTo, prev)
					prev = cur
				}
			})
		})

		Convey("When normalizing leverage (tanh, higher is worse)", func() {
			Convey("Then zero leverage maps to 1", func() {
				So(scoring.Normalize(0, scoring.FeatureDebtToEBITDA), ShouldEqual, 1.0)
			})

			Convey("Then it is monotonically non-increasing and bounded", func() {
				prev := scoring.Normalize(0, scoring.FeatureDebtToEBITDA)
				for v := 1.0; v <= 60; v++ {
					cur := scoring.Normalize(v, scoring.FeatureDebtToEBITDA)
					So(cur, ShouldBeLessThanOrEqualTo, prev)
					So(cur, ShouldBeGreaterThanOrEqualTo, 0)
					prev = cur
				}
			})

			Convey("Then negative input clips to the domain floor", func() {
				So(scoring.Normalize(-5, scoring.FeatureDebtToEBITDA), ShouldEqual, 1.0)
			})
		})

		Convey("When normalizing the current ratio (linear)", func() {
			So(scoring.Normalize(0, scoring.FeatureCurrentRatio), ShouldEqual, 0.0)
			So(scoring.Normalize(5, scoring.FeatureCurrentRatio), ShouldEqual, 0.5)
			So(scoring.Normalize(10, scoring.FeatureCurrentRatio), ShouldEqual, 1.0)
			So(scoring.Normalize(25, scoring.FeatureCurrentRatio), ShouldEqual, 1.0)
		})

		Convey("When normalizing volatility (log1p)", func() {
			So(scoring.Normalize(0, scoring.FeatureVolatility30d), ShouldEqual, 0.0)
			So(scoring.Normalize(math.E-1, scoring.FeatureVolatility30d), ShouldAlmostEqual, 1.0, 1e-9)

			Convey("Then large values are compressed, not dominant", func() {
				So(scoring.Normalize(1000, scoring.FeatureVolatility30d), ShouldBeLessThan, 7)
			})

			Convey("Then the output is finite for any input", func() {
				So(math.IsInf(scoring.Normalize(math.Inf(1), scoring.FeatureVolatility30d), 0), ShouldBeFalse)
				So(math.IsNaN(scoring.Normalize(-2, scoring.FeatureVolatility30d)), ShouldBeFalse)
			})
		})

		Convey("When normalizing drawdown (sqrt)", func() {
			So(scoring.Normalize(0.25, scoring.FeatureMaxDrawdown30d), ShouldEqual, 0.5)
			So(scoring.Normalize(1, scoring.FeatureMaxDrawdown30d), ShouldEqual, 1.0)

			Convey("Then small losses are penalized proportionally more", func() {
				small := scoring.Normalize(0.01, scoring.FeatureMaxDrawdown30d)
				So(small, ShouldEqual, 0.1) // 10x the raw loss
			})

			Convey("Then negative input clips rather than producing NaN", func() {
				So(math.IsNaN(scoring.Normalize(-0.2, scoring.FeatureMaxDrawdown30d)), ShouldBeFalse)
			})
		})

		Convey("When normalizing an unknown feature", func() {
			So(scoring.Normalize(0, "mystery"), ShouldEqual, 0.0)
			So(scoring.Normalize(3, "mystery"), ShouldEqual, 1.0)
			So(scoring.Normalize(-3, "mystery"), ShouldEqual, -1.0)
			So(scoring.Normalize(99, "mystery"), ShouldEqual, 1.0)
			So(scoring.Normalize(-99, "mystery"), ShouldEqual, -1.0)
		})
	})
}
