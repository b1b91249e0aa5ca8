package salesforce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOpportunity(t *testing.T) {
	var gotSOQL string
	mock := &mockClient{queryFn: func(_ context.Context, soql string, out any) error {
		gotSOQL = soql
		opps := out.(*[]Opportunity)
		*opps = []Opportunity{{ID: "006xx", Name: "Acme renewal", StageName: "Negotiation"}}
		return nil
	}}

	opp, err := FindOpportunity(context.Background(), mock, "006xx")
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Equal(t, "Acme renewal", opp.Name)
	assert.Contains(t, gotSOQL, "FROM Opportunity WHERE Id = '006xx' LIMIT 1")
}

func TestFindOpportunity_NotFoundAndEscaping(t *testing.T) {
	var gotSOQL string
	mock := &mockClient{queryFn: func(_ context.Context, soql string, _ any) error {
		gotSOQL = soql
		return nil
	}}

	opp, err := FindOpportunity(context.Background(), mock, "x' OR Name != '")
	require.NoError(t, err)
	assert.Nil(t, opp)
	assert.Contains(t, gotSOQL, `Id = 'x\' OR Name != \''`)
}

func TestFindOpportunity_Error(t *testing.T) {
	mock := &mockClient{queryFn: func(context.Context, string, any) error { return assert.AnError }}

	_, err := FindOpportunity(context.Background(), mock, "006xx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: find opportunity 006xx")
}

func TestListOpenOpportunities(t *testing.T) {
	var gotSOQL string
	mock := &mockClient{queryFn: func(_ context.Context, soql string, out any) error {
		gotSOQL = soql
		*out.(*[]Opportunity) = []Opportunity{{ID: "a"}, {ID: "b"}}
		return nil
	}}

	opps, err := ListOpenOpportunities(context.Background(), mock, 0)
	require.NoError(t, err)
	assert.Len(t, opps, 2)
	assert.Contains(t, gotSOQL, "IsClosed = false")
	assert.Contains(t, gotSOQL, "LIMIT 200")
}

func TestUpdateOpportunity(t *testing.T) {
	var gotObj, gotID string
	mock := &mockClient{updateOneFn: func(_ context.Context, obj, id string, fields map[string]any) error {
		gotObj, gotID = obj, id
		assert.Equal(t, 72, fields["MEDDPICC_Score__c"])
		return nil
	}}

	err := UpdateOpportunity(context.Background(), mock, "006xx", map[string]any{"MEDDPICC_Score__c": 72})
	require.NoError(t, err)
	assert.Equal(t, "Opportunity", gotObj)
	assert.Equal(t, "006xx", gotID)

	assert.Error(t, UpdateOpportunity(context.Background(), mock, "", map[string]any{"A": 1}))
	assert.Error(t, UpdateOpportunity(context.Background(), mock, "006xx", nil))
}

func TestMissingFields(t *testing.T) {
	mock := &mockClient{describeSObjectFn: func(_ context.Context, name string) (*SObjectDescription, error) {
		assert.Equal(t, "Opportunity", name)
		return &SObjectDescription{Fields: []SObjectField{
			{Name: "MEDDPICC_Score__c", Updateable: true},
			{Name: "MEDDPICC_Level__c", Updateable: false},
		}}, nil
	}}

	missing, err := MissingFields(context.Background(), mock, []string{"MEDDPICC_Score__c", "MEDDPICC_Level__c", "Nope__c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"MEDDPICC_Level__c", "Nope__c"}, missing)
}
