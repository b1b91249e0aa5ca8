// Package qualify implements MEDDPICC qualification scoring: the pillar
// catalog, the response store, the scorer and the stage-gate evaluator.
package qualify

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/fulqrun/meddpicc-cli/internal/model"
)

// Criterion binds a stage-gate criterion name to a pillar score threshold.
// It is the only place criterion thresholds are defined.
type Criterion struct {
	Name      string `json:"name" yaml:"name" validate:"required"`
	PillarID  string `json:"pillar_id" yaml:"pillar_id" validate:"required"`
	Threshold int    `json:"threshold" yaml:"threshold" validate:"gt=0,lte=100"`
}

// CatalogFile is the serialized form of a Catalog.
type CatalogFile struct {
	Pillars    []model.Pillar    `json:"pillars" yaml:"pillars" validate:"dive"`
	LitmusTest model.LitmusTest  `json:"litmus_test" yaml:"litmus_test"`
	StageGates []model.StageGate `json:"stage_gates" yaml:"stage_gates"`
	Criteria   []Criterion       `json:"criteria" yaml:"criteria" validate:"dive"`
}

// Catalog is the immutable pillar, question and stage-gate configuration.
// A nil *Catalog behaves as an empty one.
type Catalog struct {
	pillars  []model.Pillar
	litmus   model.LitmusTest
	gates    []model.StageGate
	criteria map[string]Criterion
	order    []string
}

// NewCatalog validates f and builds a Catalog from it.
func NewCatalog(f CatalogFile) (*Catalog, error) {
	if err := validateCatalogFile(f); err != nil {
		return nil, err
	}

	c := &Catalog{
		pillars:  clonePillars(f.Pillars),
		litmus:   model.LitmusTest{DisplayName: f.LitmusTest.DisplayName, Questions: cloneQuestions(f.LitmusTest.Questions)},
		gates:    make([]model.StageGate, len(f.StageGates)),
		criteria: make(map[string]Criterion, len(f.Criteria)),
	}
	for i, g := range f.StageGates {
		c.gates[i] = model.StageGate{From: g.From, To: g.To, Criteria: append([]string(nil), g.Criteria...)}
	}
	for _, cr := range f.Criteria {
		c.criteria[criterionKey(cr.Name)] = cr
		c.order = append(c.order, cr.Name)
	}
	return c, nil
}

// LoadCatalogFile reads a YAML (or JSON) catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "qualify: read catalog %s", path)
	}
	var f CatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "qualify: parse catalog %s", path)
	}
	return NewCatalog(f)
}

// Pillars returns the ordered pillars.
func (c *Catalog) Pillars() []model.Pillar {
	if c == nil {
		return nil
	}
	return clonePillars(c.pillars)
}

// LitmusTest returns the litmus test definition.
func (c *Catalog) LitmusTest() model.LitmusTest {
	if c == nil {
		return model.LitmusTest{}
	}
	return model.LitmusTest{DisplayName: c.litmus.DisplayName, Questions: cloneQuestions(c.litmus.Questions)}
}

// StageGates returns the configured transitions in stage order.
func (c *Catalog) StageGates() []model.StageGate {
	if c == nil {
		return nil
	}
	out := make([]model.StageGate, len(c.gates))
	for i, g := range c.gates {
		out[i] = model.StageGate{From: g.From, To: g.To, Criteria: append([]string(nil), g.Criteria...)}
	}
	return out
}

// Criteria returns the criterion table in declaration order.
func (c *Catalog) Criteria() []Criterion {
	if c == nil {
		return nil
	}
	out := make([]Criterion, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.criteria[criterionKey(name)])
	}
	return out
}

// Criterion looks up a criterion by name, ignoring case and surrounding space.
func (c *Catalog) Criterion(name string) (Criterion, bool) {
	if c == nil {
		return Criterion{}, false
	}
	cr, ok := c.criteria[criterionKey(name)]
	return cr, ok
}

// Pillar returns the pillar with the given ID. The litmus test is
// addressable as model.LitmusPillarID.
func (c *Catalog) Pillar(id string) (model.Pillar, bool) {
	if c == nil {
		return model.Pillar{}, false
	}
	if id == model.LitmusPillarID {
		return c.litmus.AsPillar(), true
	}
	for _, p := range c.pillars {
		if p.ID == id {
			return p, true
		}
	}
	return model.Pillar{}, false
}

// Question returns a question by pillar and question ID.
func (c *Catalog) Question(pillarID, questionID string) (model.Question, bool) {
	p, ok := c.Pillar(pillarID)
	if !ok {
		return model.Question{}, false
	}
	return p.Question(questionID)
}

// Gate returns the stage gate for a transition.
func (c *Catalog) Gate(from, to model.Stage) (model.StageGate, bool) {
	if c == nil {
		return model.StageGate{}, false
	}
	for _, g := range c.gates {
		if g.From == from && g.To == to {
			return g, true
		}
	}
	return model.StageGate{}, false
}

// File returns the serializable form of the catalog.
func (c *Catalog) File() CatalogFile {
	return CatalogFile{
		Pillars:    c.Pillars(),
		LitmusTest: c.LitmusTest(),
		StageGates: c.StageGates(),
		Criteria:   c.Criteria(),
	}
}

// ConfigHash returns a SHA-256 hash of the catalog for reproducibility.
func ConfigHash(c *Catalog) string {
	data, err := json.Marshal(c.File())
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16]) // 32 hex chars
}

func criterionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateCatalogFile(f CatalogFile) error {
	var errs []string

	if err := validator.New().Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	pillarIDs := make(map[string]bool, len(f.Pillars))
	for _, p := range f.Pillars {
		if p.ID == model.LitmusPillarID {
			errs = append(errs, fmt.Sprintf("pillar id %q is reserved", p.ID))
		}
		if pillarIDs[p.ID] {
			errs = append(errs, fmt.Sprintf("duplicate pillar id %q", p.ID))
		}
		pillarIDs[p.ID] = true
		errs = append(errs, validateQuestions(p.ID, p.Questions)...)
	}
	errs = append(errs, validateQuestions(model.LitmusPillarID, f.LitmusTest.Questions)...)

	criteria := make(map[string]bool, len(f.Criteria))
	for _, cr := range f.Criteria {
		key := criterionKey(cr.Name)
		if criteria[key] {
			errs = append(errs, fmt.Sprintf("duplicate criterion %q", cr.Name))
		}
		criteria[key] = true
		if !pillarIDs[cr.PillarID] {
			errs = append(errs, fmt.Sprintf("criterion %q references unknown pillar %q", cr.Name, cr.PillarID))
		}
	}

	for _, g := range f.StageGates {
		next, ok := g.From.Next()
		if !ok || next != g.To {
			errs = append(errs, fmt.Sprintf("stage gate %s is not a forward transition between adjacent stages", g.Key()))
		}
		if len(g.Criteria) == 0 {
			errs = append(errs, fmt.Sprintf("stage gate %s has no criteria", g.Key()))
		}
		for _, name := range g.Criteria {
			if !criteria[criterionKey(name)] {
				errs = append(errs, fmt.Sprintf("stage gate %s uses undefined criterion %q", g.Key(), name))
			}
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("qualify: catalog validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateQuestions(pillarID string, questions []model.Question) []string {
	var errs []string
	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		if seen[q.ID] {
			errs = append(errs, fmt.Sprintf("duplicate question id %s.%s", pillarID, q.ID))
		}
		seen[q.ID] = true
		if !q.Kind.Valid() {
			errs = append(errs, fmt.Sprintf("question %s.%s has unknown type %q", pillarID, q.ID, q.Kind))
			continue
		}
		if q.Kind == model.KindScale && len(q.Options) == 0 {
			errs = append(errs, fmt.Sprintf("scale question %s.%s has no options", pillarID, q.ID))
		}
	}
	return errs
}

func clonePillars(ps []model.Pillar) []model.Pillar {
	if ps == nil {
		return nil
	}
	out := make([]model.Pillar, len(ps))
	for i, p := range ps {
		p.Questions = cloneQuestions(p.Questions)
		out[i] = p
	}
	return out
}

func cloneQuestions(qs []model.Question) []model.Question {
	if qs == nil {
		return nil
	}
	out := make([]model.Question, len(qs))
	for i, q := range qs {
		q.Options = append([]model.AnswerOption(nil), q.Options...)
		out[i] = q
	}
	return out
}
