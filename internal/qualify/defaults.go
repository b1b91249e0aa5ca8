package qualify

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/fulqrun/meddpicc-cli/internal/config"
	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// Pillar IDs of the default MEDDPICC catalog.
const (
	PillarMetrics          = "metrics"
	PillarEconomicBuyer    = "economicBuyer"
	PillarDecisionCriteria = "decisionCriteria"
	PillarDecisionProcess  = "decisionProcess"
	PillarPaperProcess     = "paperProcess"
	PillarIdentifyPain     = "identifyPain"
	PillarChampion         = "champion"
	PillarCompetition      = "competition"
)

// DefaultScoringConfig returns a config.ScoringConfig with sensible defaults.
func DefaultScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		ExcellentThreshold: 80,
		GoodThreshold:      60,
		FairThreshold:      40,
		AttentionThreshold: 60,
		CriticalThreshold:  50,
		MinTextLength:      10,
		MaxTextLength:      2000,
	}
}

// ValidateScoringConfig checks that a ScoringConfig is internally consistent.
func ValidateScoringConfig(c config.ScoringConfig) error {
	var errs []string

	thresholds := map[string]int{
		"excellent_threshold": c.ExcellentThreshold,
		"good_threshold":      c.GoodThreshold,
		"fair_threshold":      c.FairThreshold,
		"attention_threshold": c.AttentionThreshold,
		"critical_threshold":  c.CriticalThreshold,
	}
	for name, v := range thresholds {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 100", name))
		}
	}
	if !(c.ExcellentThreshold > c.GoodThreshold && c.GoodThreshold > c.FairThreshold) {
		errs = append(errs, "level thresholds must satisfy excellent > good > fair")
	}

	if c.MinTextLength < 0 {
		errs = append(errs, "min_text_length must be >= 0")
	}
	if c.MaxTextLength > 0 && c.MaxTextLength < c.MinTextLength {
		errs = append(errs, "max_text_length must be >= min_text_length")
	}

	for id, w := range c.Weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("weight for %s must be >= 0", id))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("qualify: scoring config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DefaultCatalog returns the built-in MEDDPICC catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultCatalogFile())
	if err != nil {
		// The built-in catalog is covered by tests.
		panic(err)
	}
	return c
}

func scale(labels ...string) func(points ...int) []model.AnswerOption {
	return func(points ...int) []model.AnswerOption {
		opts := make([]model.AnswerOption, len(labels))
		for i, l := range labels {
			opts[i] = model.AnswerOption{Label: l, Points: points[i]}
		}
		return opts
	}
}

// DefaultCatalogFile is the serialized built-in catalog.
func DefaultCatalogFile() CatalogFile {
	return CatalogFile{
		Pillars: []model.Pillar{
			{
				ID:          PillarMetrics,
				DisplayName: "Metrics",
				Description: "Quantifiable measures of the value the customer expects",
				Icon:        "chart-bar",
				Color:       "blue",
				Guidance:    "Agree on measurable outcomes and a baseline with the customer.",
				Questions: []model.Question{
					{ID: "outcomes", Prompt: "What quantifiable business outcomes does the customer expect?", Kind: model.KindFreeText, Required: true, Points: 10},
					{ID: "roi", Prompt: "How well has the customer validated the expected ROI?", Kind: model.KindScale, Required: true,
						Options: scale("Not discussed", "Discussed informally", "Estimated by us", "Validated by customer")(0, 3, 6, 10)},
					{ID: "baseline", Prompt: "Has the customer shared baseline figures for these metrics?", Kind: model.KindYesNo, Points: 5},
				},
			},
			{
				ID:          PillarEconomicBuyer,
				DisplayName: "Economic Buyer",
				Description: "The person with final authority over budget",
				Icon:        "user-tie",
				Color:       "green",
				Guidance:    "Secure a meeting with the person who owns the budget.",
				Questions: []model.Question{
					{ID: "identity", Prompt: "Who is the economic buyer and what is their role?", Kind: model.KindFreeText, Required: true, Points: 10},
					{ID: "access", Prompt: "What level of access do we have to the economic buyer?", Kind: model.KindScale, Required: true,
						Options: scale("None", "Through champion", "Met once", "Regular access")(0, 4, 7, 10)},
					{ID: "budget", Prompt: "Has the economic buyer confirmed budget for this initiative?", Kind: model.KindYesNo, Points: 10},
				},
			},
			{
				ID:          PillarDecisionCriteria,
				DisplayName: "Decision Criteria",
				Description: "The technical and business criteria used to select a vendor",
				Icon:        "list-check",
				Color:       "purple",
				Guidance:    "Document the evaluation criteria and shape them toward our strengths.",
				Questions: []model.Question{
					{ID: "criteria", Prompt: "What technical and business criteria will be used to decide?", Kind: model.KindFreeText, Required: true, Points: 10},
					{ID: "fit", Prompt: "How closely do the criteria favor our solution?", Kind: model.KindScale, Required: true,
						Options: scale("Unknown", "Neutral", "Favorable", "Written around our strengths")(0, 4, 7, 10)},
					{ID: "influenced", Prompt: "Have we influenced the decision criteria?", Kind: model.KindYesNo, Points: 5},
				},
			},
			{
				ID:          PillarDecisionProcess,
				DisplayName: "Decision Process",
				Description: "How, when and by whom the decision will be made",
				Icon:        "route",
				Color:       "orange",
				Guidance:    "Map every step, approver and date between now and a decision.",
				Questions: []model.Question{
					{ID: "steps", Prompt: "Describe the steps, people and timeline of the decision process.", Kind: model.KindFreeText, Required: true, Points: 10},
					{ID: "timeline", Prompt: "How well is the decision timeline understood?", Kind: model.KindScale, Required: true,
						Options: scale("Unknown", "Rough idea", "Documented", "Confirmed by economic buyer")(0, 4, 7, 10)},
					{ID: "event", Prompt: "Is there a compelling event driving the timeline?", Kind: model.KindYesNo, Points: 5},
				},
			},
			{
				ID:          PillarPaperProcess,
				DisplayName: "Paper Process",
				Description: "Legal, procurement and approval steps required to sign",
				Icon:        "file-signature",
				Color:       "gray",
				Guidance:    "Walk through procurement, legal and security review with the customer.",
				Questions: []model.Question{
					{ID: "approvals", Prompt: "What approvals, legal and procurement steps are required to sign?", Kind: model.KindFreeText, Required: true, Points: 10},
					{ID: "maturity", Prompt: "How well do we understand the paper process?", Kind: model.KindScale, Required: true,
						Options: scale("Unknown", "Partially mapped", "Fully mapped")(0, 5, 10)},
					{ID: "reviews", Prompt: "Have security and compliance reviews been identified?", Kind: model.KindYesNo, Points: 5},
				},
			},
			{
				ID:          PillarIdentifyPain,
				DisplayName: "Identify Pain",
				Description: "The business pain driving the customer to act",
				Icon:        "triangle-exclamation",
				Color:       "red",
				Critical:    true,
				Guidance:    "Uncover and quantify the pain; without it there is no deal.",
				Questions: []model.Question{
					{ID: "pain", Prompt: "What business pain is the customer trying to solve?", Kind: model.KindFreeText, Required: true, Points: 10},
					{ID: "severity", Prompt: "How severe is the pain?", Kind: model.KindScale, Required: true,
						Options: scale("Nice to have", "Moderate", "Significant", "Critical")(0, 4, 7, 10)},
					{ID: "inaction", Prompt: "Is the cost of inaction quantified?", Kind: model.KindYesNo, Points: 5},
				},
			},
			{
				ID:          PillarChampion,
				DisplayName: "Champion",
				Description: "An influential insider actively selling on our behalf",
				Icon:        "star",
				Color:       "yellow",
				Critical:    true,
				Guidance:    "Find and test a champion with influence and a personal stake.",
				Questions: []model.Question{
					{ID: "who", Prompt: "Who is our champion and why are they motivated?", Kind: model.KindFreeText, Required: true, Points: 10},
					{ID: "commitment", Prompt: "How committed is the champion?", Kind: model.KindScale, Required: true,
						Options: scale("No champion", "Coach only", "Supportive", "Actively selling for us")(0, 3, 6, 10)},
					{ID: "influence", Prompt: "Does the champion have influence with the economic buyer?", Kind: model.KindYesNo, Points: 5},
				},
			},
			{
				ID:          PillarCompetition,
				DisplayName: "Competition",
				Description: "Alternatives the customer is considering, including doing nothing",
				Icon:        "chess",
				Color:       "teal",
				Guidance:    "Identify every alternative and position our differentiators against them.",
				Questions: []model.Question{
					{ID: "competitors", Prompt: "Who are the competitors, including do-nothing and build in-house?", Kind: model.KindFreeText, Required: true, Points: 10},
					{ID: "position", Prompt: "How strong is our position versus the competition?", Kind: model.KindScale, Required: true,
						Options: scale("Unknown", "Behind", "Even", "Ahead", "Sole vendor")(0, 2, 5, 8, 10)},
					{ID: "pricing", Prompt: "Do we know the competitors' pricing and proposal?", Kind: model.KindYesNo, Points: 5},
				},
			},
		},
		LitmusTest: model.LitmusTest{
			DisplayName: "Litmus Test",
			Questions: []model.Question{
				{ID: "compelling", Prompt: "Is there a compelling reason for the customer to act?", Kind: model.KindYesNo, Required: true, Points: 10},
				{ID: "funded", Prompt: "Is the initiative funded?", Kind: model.KindYesNo, Required: true, Points: 10},
				{ID: "winnable", Prompt: "Can we win with our differentiators?", Kind: model.KindYesNo, Required: true, Points: 10},
				{ID: "worthwhile", Prompt: "Is the opportunity worth the effort to pursue?", Kind: model.KindYesNo, Required: true, Points: 10},
			},
		},
		StageGates: []model.StageGate{
			{From: model.StageProspecting, To: model.StageEngaging, Criteria: []string{
				"Pain identified", "Metrics discussed",
			}},
			{From: model.StageEngaging, To: model.StageAdvancing, Criteria: []string{
				"Champion identified", "Economic buyer identified", "Decision criteria understood",
			}},
			{From: model.StageAdvancing, To: model.StageKeyDecision, Criteria: []string{
				"Champion committed", "Decision process mapped", "Paper process understood", "Competition assessed",
			}},
		},
		Criteria: []Criterion{
			{Name: "Pain identified", PillarID: PillarIdentifyPain, Threshold: 50},
			{Name: "Metrics discussed", PillarID: PillarMetrics, Threshold: 40},
			{Name: "Champion identified", PillarID: PillarChampion, Threshold: 50},
			{Name: "Economic buyer identified", PillarID: PillarEconomicBuyer, Threshold: 50},
			{Name: "Decision criteria understood", PillarID: PillarDecisionCriteria, Threshold: 50},
			{Name: "Champion committed", PillarID: PillarChampion, Threshold: 80},
			{Name: "Decision process mapped", PillarID: PillarDecisionProcess, Threshold: 70},
			{Name: "Paper process understood", PillarID: PillarPaperProcess, Threshold: 60},
			{Name: "Competition assessed", PillarID: PillarCompetition, Threshold: 60},
		},
	}
}
