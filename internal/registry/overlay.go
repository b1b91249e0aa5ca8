package registry

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
)

// Overlay replaces the questions of every pillar that has registry entries
// with those entries, in Order. Pillars without entries keep their built-in
// questions. Entries naming an unknown pillar are skipped.
func Overlay(base *qualify.Catalog, entries []Entry) (*qualify.Catalog, error) {
	if len(entries) == 0 {
		return base, nil
	}

	byPillar := make(map[string][]Entry)
	for _, e := range entries {
		byPillar[e.PillarID] = append(byPillar[e.PillarID], e)
	}
	for id := range byPillar {
		sortEntries(byPillar[id])
	}

	f := base.File()
	used := make(map[string]bool, len(byPillar))
	for i, p := range f.Pillars {
		if es, ok := byPillar[p.ID]; ok {
			f.Pillars[i].Questions = questionsOf(es)
			used[p.ID] = true
		}
	}
	if es, ok := byPillar[model.LitmusPillarID]; ok {
		f.LitmusTest.Questions = questionsOf(es)
		used[model.LitmusPillarID] = true
	}

	for id, es := range byPillar {
		if !used[id] {
			zap.L().Warn("registry: skipping questions for unknown pillar",
				zap.String("pillar", id),
				zap.Int("questions", len(es)),
			)
		}
	}

	c, err := qualify.NewCatalog(f)
	if err != nil {
		return nil, eris.Wrap(err, "registry: overlay catalog")
	}
	return c, nil
}

func questionsOf(es []Entry) []model.Question {
	qs := make([]model.Question, len(es))
	for i, e := range es {
		qs[i] = e.Question
	}
	return qs
}
