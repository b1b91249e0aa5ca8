// Package registry loads qualification questions and CRM field mappings from
// Notion databases and overlays them onto the built-in catalog.
package registry

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/pkg/notion"
)

// Notion property names of the question registry database.
const (
	propPrompt     = "Prompt"
	propQuestionID = "Question ID"
	propPillar     = "Pillar"
	propType       = "Type"
	propTooltip    = "Tooltip"
	propRequired   = "Required"
	propPoints     = "Points"
	propOptions    = "Options"
	propOrder      = "Order"
	propStatus     = "Status"
)

// StatusActive marks registry pages that are loaded.
const StatusActive = "Active"

// Entry is one registry question and the pillar it belongs to.
type Entry struct {
	PageID   string         `json:"page_id,omitempty" yaml:"page_id,omitempty"`
	PillarID string         `json:"pillar" yaml:"pillar"`
	Order    int            `json:"order" yaml:"order"`
	Question model.Question `json:"question" yaml:"question"`
}

// LoadQuestions queries the question registry for every active question.
// Malformed pages are skipped with a warning.
func LoadQuestions(ctx context.Context, client notion.Client, dbID string) ([]Entry, error) {
	pages, err := notion.QueryByStatus(ctx, client, dbID, StatusActive)
	if err != nil {
		return nil, eris.Wrap(err, "registry: load questions")
	}

	var entries []Entry
	for _, p := range pages {
		e, err := parseQuestionPage(p)
		if err != nil {
			zap.L().Warn("registry: skipping malformed question page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, e)
	}
	sortEntries(entries)

	zap.L().Info("registry: loaded questions",
		zap.Int("pages", len(pages)),
		zap.Int("questions", len(entries)),
	)
	return entries, nil
}

func parseQuestionPage(p notionapi.Page) (Entry, error) {
	props := p.Properties
	e := Entry{
		PageID:   string(p.ID),
		PillarID: strings.TrimSpace(notion.Select(props, propPillar)),
		Question: model.Question{
			ID:       strings.TrimSpace(notion.RichText(props, propQuestionID)),
			Prompt:   strings.TrimSpace(notion.Title(props, propPrompt)),
			Tooltip:  notion.RichText(props, propTooltip),
			Required: notion.Checkbox(props, propRequired),
		},
	}
	if e.Question.ID == "" {
		e.Question.ID = string(p.ID)
	}
	if order, ok := notion.Number(props, propOrder); ok {
		e.Order = int(order)
	}
	if pts, ok := notion.Number(props, propPoints); ok {
		e.Question.Points = int(pts)
	}

	if e.Question.Prompt == "" {
		return e, eris.New("missing Prompt property")
	}
	if e.PillarID == "" {
		return e, eris.New("missing Pillar property")
	}

	kind, ok := model.ParseQuestionKind(notion.Select(props, propType))
	if !ok {
		return e, eris.Errorf("unknown question type %q", notion.Select(props, propType))
	}
	e.Question.Kind = kind

	opts, err := ParseOptions(notion.RichText(props, propOptions))
	if err != nil {
		return e, err
	}
	e.Question.Options = opts
	if kind == model.KindScale && len(opts) == 0 {
		return e, eris.New("scale question has no options")
	}
	return e, nil
}

// ParseOptions reads "Label=Points|Label=Points". A label without "=Points"
// earns zero.
func ParseOptions(s string) ([]model.AnswerOption, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []model.AnswerOption
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, pts, found := strings.Cut(part, "=")
		opt := model.AnswerOption{Label: strings.TrimSpace(label)}
		if opt.Label == "" {
			return nil, eris.Errorf("option %q has no label", part)
		}
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(pts))
			if err != nil || n < 0 {
				return nil, eris.Errorf("option %q has invalid points", part)
			}
			opt.Points = n
		}
		out = append(out, opt)
	}
	return out, nil
}

// FormatOptions is the inverse of ParseOptions.
func FormatOptions(opts []model.AnswerOption) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = o.Label + "=" + strconv.Itoa(o.Points)
	}
	return strings.Join(parts, "|")
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PillarID != entries[j].PillarID {
			return entries[i].PillarID < entries[j].PillarID
		}
		return entries[i].Order < entries[j].Order
	})
}
