package qualify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// testCatalog has a champion pillar with one 0/100 scale question, a metrics
// pillar with four questions worth 10 points each, and an empty pillar.
func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(testCatalogFile())
	require.NoError(t, err)
	return c
}

func testCatalogFile() CatalogFile {
	return CatalogFile{
		Pillars: []model.Pillar{
			{
				ID:          "champion",
				DisplayName: "Champion",
				Critical:    true,
				Guidance:    "Find a champion.",
				Questions: []model.Question{
					{ID: "commit", Prompt: "How committed is the champion?", Kind: model.KindScale, Required: true,
						Options: []model.AnswerOption{{Label: "None", Points: 0}, {Label: "Full", Points: 100}}},
				},
			},
			{
				ID:          "metrics",
				DisplayName: "Metrics",
				Questions: []model.Question{
					{ID: "m1", Prompt: "What metrics matter", Kind: model.KindFreeText, Required: true, Points: 10},
					{ID: "m2", Prompt: "Is the baseline known?", Kind: model.KindYesNo, Points: 10},
					{ID: "m3", Prompt: "Is the target agreed?", Kind: model.KindYesNo, Points: 10},
					{ID: "m4", Prompt: "Is the ROI validated?", Kind: model.KindYesNo, Points: 10},
				},
			},
			{ID: "empty", DisplayName: "Empty"},
		},
		LitmusTest: model.LitmusTest{
			DisplayName: "Litmus",
			Questions: []model.Question{
				{ID: "worth", Prompt: "Is it worth pursuing?", Kind: model.KindYesNo, Required: true, Points: 10},
			},
		},
		StageGates: []model.StageGate{
			{From: model.StageProspecting, To: model.StageEngaging, Criteria: []string{"Metrics discussed"}},
			{From: model.StageEngaging, To: model.StageAdvancing, Criteria: []string{"Champion committed"}},
			{From: model.StageAdvancing, To: model.StageKeyDecision, Criteria: []string{"Champion committed", "Metrics discussed"}},
		},
		Criteria: []Criterion{
			{Name: "Champion committed", PillarID: "champion", Threshold: 80},
			{Name: "Metrics discussed", PillarID: "metrics", Threshold: 50},
		},
	}
}

func intPtr(v int) *int { return &v }
