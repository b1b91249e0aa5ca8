package registry

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fulqrun/meddpicc-cli/pkg/notion"
)

// LoadFieldMap queries the field registry database for active mappings from
// an assessment field key (title "Key") to a Salesforce field API name
// (rich text "SFField").
func LoadFieldMap(ctx context.Context, client notion.Client, dbID string) (map[string]string, error) {
	pages, err := notion.QueryByStatus(ctx, client, dbID, StatusActive)
	if err != nil {
		return nil, eris.Wrap(err, "registry: load field map")
	}

	fields := make(map[string]string, len(pages))
	for _, p := range pages {
		key := strings.TrimSpace(notion.Title(p.Properties, "Key"))
		sf := strings.TrimSpace(notion.RichText(p.Properties, "SFField"))
		if key == "" || sf == "" {
			zap.L().Warn("registry: skipping malformed field page",
				zap.String("page_id", string(p.ID)),
			)
			continue
		}
		fields[key] = sf
	}
	return fields, nil
}
