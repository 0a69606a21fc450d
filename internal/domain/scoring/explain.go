package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
)

// explain ranks feature contributions, keeps the top drivers and builds a
// one-paragraph summary. Pure formatting; an empty input yields an
// empty-but-valid explanation rather than an error.
func (e *Engine) explain(base, market []model.Contribution, events []model.EventContribution) model.Explanation {
	merged := make([]model.FeatureImpact, 0, len(base)+len(market))
	for _, c := range append(append([]model.Contribution(nil), base...), market...) {
		merged = append(merged, model.FeatureImpact{
			Name:   c.Name,
			Impact: model.Round1(c.Contribution * 100), // scale to score points
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return math.Abs(merged[i].Impact) > math.Abs(merged[j].Impact)
	})
	if len(merged) > e.cfg.TopFeatures {
		merged = merged[:e.cfg.TopFeatures]
	}

	impacts := make([]model.EventImpact, 0, len(events))
	for _, ev := range events {
		impacts = append(impacts, model.EventImpact{
			Type:     ev.Type,
			Headline: ev.Headline,
			Impact:   model.Round1(ev.EffectiveWeight),
			URL:      ev.URL,
			TS:       ev.OccurredAt,
		})
	}

	return model.Explanation{
		TopFeatures: merged,
		Events:      impacts,
		Summary:     summarize(merged, impacts),
	}
}

func summarize(features []model.FeatureImpact, events []model.EventImpact) string {
	total := 0.0
	for _, f := range features {
		total += f.Impact
	}

	direction := "decreased"
	if total > 0 {
		direction = "increased"
	}

	summary := fmt.Sprintf("Score %s by %.1f points. ", direction, math.Abs(total))
	if len(features) > 0 {
		summary += fmt.Sprintf("Primary driver: %s (%+.1f). ", features[0].Name, features[0].Impact)
	}
	if len(events) > 0 {
		summary += fmt.Sprintf("Recent events: %d significant news items.", len(events))
	}
	return summary
}
