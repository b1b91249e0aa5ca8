package salesforce

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// BulkUpdate splits records into batches of 200 and sends each through
// UpdateCollection. On error the results of earlier batches are returned
// with it.
func BulkUpdate(ctx context.Context, c Client, sObjectName string, records []CollectionRecord) ([]CollectionResult, error) {
	if len(records) == 0 {
		return nil, nil
	}

	var allResults []CollectionResult
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))

		results, err := c.UpdateCollection(ctx, sObjectName, records[start:end])
		if err != nil {
			return allResults, eris.Wrap(err, fmt.Sprintf("sf: bulk update %s batch %d-%d", sObjectName, start, end))
		}
		allResults = append(allResults, results...)
	}
	return allResults, nil
}
