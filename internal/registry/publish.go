package registry

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/internal/model"
	"github.com/fulqrun/meddpicc-cli/internal/qualify"
	"github.com/fulqrun/meddpicc-cli/pkg/notion"
)

// PublishResult counts the pages a Publish call touched.
type PublishResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Publish writes every question of the catalog to the registry database,
// updating pages whose (Pillar, Question ID) already exists and creating
// the rest. Published pages are marked Active.
func Publish(ctx context.Context, client notion.Client, dbID string, c *qualify.Catalog) (PublishResult, error) {
	var res PublishResult

	existing, err := notion.QueryAll(ctx, client, dbID, nil)
	if err != nil {
		return res, eris.Wrap(err, "registry: list existing questions")
	}
	pageByKey := make(map[model.ResponseKey]notionapi.ObjectID, len(existing))
	for _, p := range existing {
		key := model.ResponseKey{
			PillarID:   notion.Select(p.Properties, propPillar),
			QuestionID: notion.RichText(p.Properties, propQuestionID),
		}
		pageByKey[key] = p.ID
	}

	for _, p := range append(c.Pillars(), c.LitmusTest().AsPillar()) {
		for i, q := range p.Questions {
			props := questionProperties(p.ID, i+1, q)
			if id, ok := pageByKey[model.ResponseKey{PillarID: p.ID, QuestionID: q.ID}]; ok {
				if _, err := client.UpdatePage(ctx, string(id), &notionapi.PageUpdateRequest{Properties: props}); err != nil {
					return res, eris.Wrapf(err, "registry: update question %s.%s", p.ID, q.ID)
				}
				res.Updated++
				continue
			}
			_, err := client.CreatePage(ctx, &notionapi.PageCreateRequest{
				Parent: notionapi.Parent{
					Type:       notionapi.ParentTypeDatabaseID,
					DatabaseID: notionapi.DatabaseID(dbID),
				},
				Properties: props,
			})
			if err != nil {
				return res, eris.Wrapf(err, "registry: create question %s.%s", p.ID, q.ID)
			}
			res.Created++
		}
	}

	zap.L().Info("registry: published catalog",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
	)
	return res, nil
}

func questionProperties(pillarID string, order int, q model.Question) notionapi.Properties {
	props := notionapi.Properties{
		propPrompt:     notion.TitleValue(q.Prompt),
		propQuestionID: notion.RichTextValue(q.ID),
		propPillar:     notion.SelectValue(pillarID),
		propType:       notion.SelectValue(string(q.Kind)),
		propTooltip:    notion.RichTextValue(q.Tooltip),
		propRequired:   notion.CheckboxValue(q.Required),
		propPoints:     notion.NumberValue(float64(q.Points)),
		propOrder:      notion.NumberValue(float64(order)),
		propStatus:     notion.StatusValue(StatusActive),
	}
	if len(q.Options) > 0 {
		props[propOptions] = notion.RichTextValue(FormatOptions(q.Options))
	}
	return props
}
