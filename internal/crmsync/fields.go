// Package crmsync writes qualification assessments back to Salesforce
// Opportunity records.
package crmsync

import (
	"sort"
	"strings"
	"unicode"

	"github.com/fulqrun/meddpicc-cli/internal/qualify"
)

// Field keys for the assessment-wide values.
const (
	KeyOverallScore = "overall_score"
	KeyLevel        = "level"
	KeyLitmusScore  = "litmus_score"
	KeyNextActions  = "next_actions"
)

// ScoreKey is the field key for a pillar's score.
func ScoreKey(pillarID string) string { return strings.ToLower(pillarID) + "_score" }

// SummaryKey is the field key for a pillar's flattened answer text.
func SummaryKey(pillarID string) string { return strings.ToLower(pillarID) + "_summary" }

// DefaultFields maps field keys to the custom Opportunity fields of the
// managed package. Pillar fields are derived from pillar IDs, e.g.
// economicBuyer becomes MEDDPICC_EconomicBuyer_Score__c.
func DefaultFields(c *qualify.Catalog) map[string]string {
	fields := map[string]string{
		KeyOverallScore: "MEDDPICC_Score__c",
		KeyLevel:        "MEDDPICC_Level__c",
		KeyLitmusScore:  "MEDDPICC_Litmus_Score__c",
		KeyNextActions:  "MEDDPICC_Next_Actions__c",
	}
	for _, p := range c.Pillars() {
		name := upperFirst(p.ID)
		fields[ScoreKey(p.ID)] = "MEDDPICC_" + name + "_Score__c"
		fields[SummaryKey(p.ID)] = "MEDDPICC_" + name + "_Summary__c"
	}
	return fields
}

// MergeFields layers overrides onto base. Keys are case-insensitive since
// viper lowercases map keys. An empty value disables the field.
func MergeFields(base map[string]string, overrides ...map[string]string) map[string]string {
	out := make(map[string]string, len(base))
	for k, v := range base {
		out[strings.ToLower(k)] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			k = strings.ToLower(strings.TrimSpace(k))
			v = strings.TrimSpace(v)
			if v == "" {
				delete(out, k)
				continue
			}
			out[k] = v
		}
	}
	return out
}

// fieldNames returns the distinct Salesforce field names, sorted.
func fieldNames(fields map[string]string) []string {
	seen := make(map[string]bool, len(fields))
	var names []string
	for _, v := range fields {
		if !seen[v] {
			seen[v] = true
			names = append(names, v)
		}
	}
	sort.Strings(names)
	return names
}

func upperFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
