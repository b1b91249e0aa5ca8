package qualify

import (
	"fmt"

	"github.com/fulqrun/meddpicc-cli/internal/config"
	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// nextActions recommends follow-ups, most critical first: critical pillars
// under the critical threshold, then other pillars under the attention
// threshold in catalog order, then a weak litmus test.
func nextActions(pillars []model.Pillar, scores map[string]int, litmus model.Pillar, litmusScore int, cfg config.ScoringConfig) []string {
	actions := []string{}
	flagged := make(map[string]bool)

	for _, p := range pillars {
		if !p.Critical || scores[p.ID] >= cfg.CriticalThreshold {
			continue
		}
		actions = append(actions, fmt.Sprintf("Critical: %s is at %d%%. %s", p.DisplayName, scores[p.ID], guidance(p)))
		flagged[p.ID] = true
	}

	for _, p := range pillars {
		if flagged[p.ID] || scores[p.ID] >= cfg.AttentionThreshold {
			continue
		}
		actions = append(actions, fmt.Sprintf("Improve %s (%d%%): %s", p.DisplayName, scores[p.ID], guidance(p)))
	}

	if len(litmus.Questions) > 0 && litmusScore < cfg.AttentionThreshold {
		actions = append(actions, fmt.Sprintf("Revisit the litmus test (%d%%): confirm the opportunity is worth pursuing", litmusScore))
	}
	return actions
}

func guidance(p model.Pillar) string {
	if p.Guidance != "" {
		return p.Guidance
	}
	return fmt.Sprintf("Answer the open %s questions.", p.DisplayName)
}
