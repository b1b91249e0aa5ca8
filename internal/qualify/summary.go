package qualify

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// ErrUnknownPillar is returned when a pillar ID is not in the catalog.
var ErrUnknownPillar = errors.New("qualify: unknown pillar")

const blockSep = "\n\n"

// Summarize flattens responses into one "<prompt>: <answer>" text per pillar,
// blocks separated by a blank line, in catalog question order. Pillars with
// no answers are omitted. The litmus test is keyed by model.LitmusPillarID.
func Summarize(c *Catalog, responses []model.Response) map[string]string {
	answers := make(map[model.ResponseKey]string, len(responses))
	for _, r := range responses {
		if a := strings.TrimSpace(r.Answer); a != "" {
			answers[r.Key()] = a
		}
	}

	pillars := c.Pillars()
	if lt := c.LitmusTest(); len(lt.Questions) > 0 {
		pillars = append(pillars, lt.AsPillar())
	}

	out := make(map[string]string)
	for _, p := range pillars {
		var blocks []string
		for _, q := range p.Questions {
			a, ok := answers[model.ResponseKey{PillarID: p.ID, QuestionID: q.ID}]
			if !ok {
				continue
			}
			blocks = append(blocks, q.Prompt+": "+a)
		}
		if len(blocks) > 0 {
			out[p.ID] = strings.Join(blocks, blockSep)
		}
	}
	return out
}

// SummaryImport is the outcome of parsing a legacy flattened summary.
type SummaryImport struct {
	Responses []model.Response `json:"responses"`
	// Unmatched holds blocks that could not be attributed to any question.
	Unmatched []string `json:"unmatched,omitempty"`
	// Continuations holds blocks without a prompt that were appended to the
	// preceding answer. They are reported because the attribution is a guess.
	Continuations []string `json:"continuations,omitempty"`
}

// ParseSummary is a best-effort importer for the legacy flattened text of one
// pillar. A block is attributed to the question whose prompt it starts with,
// compared case-insensitively and followed by ':'. Answers that themselves
// contain a blank line are rejoined and reported as continuations.
func ParseSummary(c *Catalog, pillarID, text string, minTextLength int) (SummaryImport, error) {
	p, ok := c.Pillar(pillarID)
	if !ok {
		return SummaryImport{}, eris.Wrapf(ErrUnknownPillar, "%s", pillarID)
	}

	var res SummaryImport
	text = strings.ReplaceAll(text, "\r\n", "\n")

	type parsed struct {
		q      model.Question
		answer string
	}
	var order []string
	got := make(map[string]*parsed)
	var last *parsed

	for _, block := range splitBlocks(text) {
		q, answer, ok := matchPrompt(p.Questions, block)
		if !ok {
			if last != nil {
				last.answer += blockSep + block
				res.Continuations = append(res.Continuations, block)
			} else {
				res.Unmatched = append(res.Unmatched, block)
			}
			continue
		}
		if _, seen := got[q.ID]; !seen {
			order = append(order, q.ID)
		}
		last = &parsed{q: q, answer: answer}
		got[q.ID] = last
	}

	for _, id := range order {
		pr := got[id]
		answer := strings.TrimSpace(pr.answer)
		if answer == "" {
			continue
		}
		res.Responses = append(res.Responses, model.Response{
			PillarID:   pillarID,
			QuestionID: id,
			Answer:     answer,
			Points:     ResolvePoints(pr.q, answer, nil, minTextLength),
		})
	}
	return res, nil
}

func splitBlocks(text string) []string {
	var blocks []string
	var cur []string
	flush := func() {
		if b := strings.TrimSpace(strings.Join(cur, "\n")); b != "" {
			blocks = append(blocks, b)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// matchPrompt finds the question with the longest prompt that block starts
// with, followed by ':'. The comparison folds both sides, so the matched
// prefix may differ from the prompt in byte length.
func matchPrompt(questions []model.Question, block string) (model.Question, string, bool) {
	fold := cases.Fold()
	prompts := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		if q.Prompt == "" {
			continue
		}
		k := fold.String(q.Prompt)
		if _, dup := prompts[k]; !dup {
			prompts[k] = q
		}
	}

	var best model.Question
	end := -1
	for i := 0; i < len(block); {
		j := strings.IndexByte(block[i:], ':')
		if j < 0 {
			break
		}
		i += j
		if q, ok := prompts[fold.String(block[:i])]; ok {
			best, end = q, i
		}
		i++
	}
	if end < 0 {
		return model.Question{}, "", false
	}
	return best, strings.TrimSpace(block[end+1:]), true
}
