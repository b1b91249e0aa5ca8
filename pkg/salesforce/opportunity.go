package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// OpportunityObject is the SObject assessments are written to.
const OpportunityObject = "Opportunity"

// Opportunity represents a Salesforce Opportunity record.
type Opportunity struct {
	ID           string  `json:"Id" salesforce:"Id"`
	Name         string  `json:"Name" salesforce:"Name"`
	StageName    string  `json:"StageName" salesforce:"StageName"`
	Amount       float64 `json:"Amount" salesforce:"Amount"`
	CloseDate    string  `json:"CloseDate" salesforce:"CloseDate"`
	AccountID    string  `json:"AccountId" salesforce:"AccountId"`
	LastModified string  `json:"LastModifiedDate" salesforce:"LastModifiedDate"`
}

// opportunityFields are the SOQL fields selected for Opportunity queries.
var opportunityFields = []string{
	"Id", "Name", "StageName", "Amount", "CloseDate", "AccountId", "LastModifiedDate",
}

// FindOpportunity queries an Opportunity by its ID. Returns nil if none is found.
func FindOpportunity(ctx context.Context, c Client, id string) (*Opportunity, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Opportunity WHERE Id = '%s' LIMIT 1",
		strings.Join(opportunityFields, ", "),
		escapeSoql(id),
	)

	var opps []Opportunity
	if err := c.Query(ctx, soql, &opps); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find opportunity %s", id))
	}
	if len(opps) == 0 {
		return nil, nil
	}
	return &opps[0], nil
}

// ListOpenOpportunities returns open opportunities, newest first, up to limit.
func ListOpenOpportunities(ctx context.Context, c Client, limit int) ([]Opportunity, error) {
	if limit <= 0 {
		limit = maxBatchSize
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM Opportunity WHERE IsClosed = false ORDER BY LastModifiedDate DESC LIMIT %d",
		strings.Join(opportunityFields, ", "),
		limit,
	)

	var opps []Opportunity
	if err := c.Query(ctx, soql, &opps); err != nil {
		return nil, eris.Wrap(err, "sf: list open opportunities")
	}
	return opps, nil
}

// UpdateOpportunity updates an Opportunity record with the given fields.
func UpdateOpportunity(ctx context.Context, c Client, id string, fields map[string]any) error {
	if id == "" {
		return eris.New("sf: opportunity id is required")
	}
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, OpportunityObject, id, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update opportunity %s", id))
	}
	return nil
}

// MissingFields returns the names in fields that the Opportunity object lacks
// or that are not updateable.
func MissingFields(ctx context.Context, c Client, fields []string) ([]string, error) {
	desc, err := c.DescribeSObject(ctx, OpportunityObject)
	if err != nil {
		return nil, eris.Wrap(err, "sf: check opportunity fields")
	}
	var missing []string
	for _, name := range fields {
		if f, ok := desc.Field(name); !ok || !f.Updateable {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
