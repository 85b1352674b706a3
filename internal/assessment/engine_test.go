package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evaluationTime = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func completeRecord(identifier string, hierarchy float64) Record {
	return Record{
		FieldIdentifier:          identifier,
		FieldHierarchy:           hierarchy,
		FieldTitle:               longTitle,
		FieldDescription:         longTitle + " through community-led borehole drilling and hygiene training.",
		FieldStatusCode:          "2",
		FieldStartActual:         "2015-01-01",
		FieldEndPlanned:          "2026-01-01",
		FieldSectorCode:          []any{"14030", "14031"},
		FieldSectorPercentage:    []any{50.0, 50.0},
		FieldCountryCode:         "KE",
		FieldParticipatingOrgRef: []any{"GB-GOV-1"},
		FieldDocumentTitle: []any{
			"Business Case Published",
			"Logical Framework Published",
			"Annual Review Published",
		},
	}
}

func TestEvaluateCompleteProgramme(t *testing.T) {
	engine := NewEngine(DefaultConfig(evaluationTime))

	result := engine.Evaluate(completeRecord("GB-1-100", 1))

	assert.Equal(t, "GB-1-100", result.Identifier)
	assert.Equal(t, 1, result.Hierarchy)
	assert.Equal(t, longTitle, result.Title)
	require.NotNil(t, result.StatusCode)
	assert.Equal(t, "2", *result.StatusCode)
	assert.Equal(t, StatusPass, result.OverallStatus)
	assert.Zero(t, result.FailureCount)
	require.Len(t, result.Attributes, 7)
	require.Len(t, result.Documents, 3)

	order := make([]string, 0, len(result.Attributes))
	for _, a := range result.Attributes {
		order = append(order, a.Attribute)
		assert.Equal(t, StatusPass, a.Status, a.Attribute)
		assert.Equal(t, 100.0, a.Percentage(), a.Attribute)
	}
	assert.Equal(t, []string{
		AttributeTitle, AttributeDescription, AttributeStartDate, AttributeEndDate,
		AttributeSector, AttributeLocation, AttributeParticipatingOrg,
	}, order)
	assert.Equal(t, DocumentBusinessCase, result.Documents[0].DocumentType)
	assert.Equal(t, DocumentLogicalFramework, result.Documents[1].DocumentType)
	assert.Equal(t, DocumentAnnualReview, result.Documents[2].DocumentType)
}

func TestEvaluateProjectSkipsDocuments(t *testing.T) {
	engine := NewEngine(DefaultConfig(evaluationTime))
	r := completeRecord("GB-1-100-101", 2)
	delete(r, FieldDocumentTitle)

	result := engine.Evaluate(r)

	assert.Equal(t, 2, result.Hierarchy)
	assert.Empty(t, result.Documents)
	assert.Equal(t, StatusPass, result.OverallStatus)
}

func TestFailingProjectJSONShape(t *testing.T) {
	engine := NewEngine(DefaultConfig(evaluationTime))

	result := engine.Evaluate(Record{FieldIdentifier: "X-1", FieldHierarchy: 2.0})
	require.True(t, result.Failed())

	body, err := json.Marshal(result)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, []any{}, m["documents"])
	assert.Contains(t, m, "title")
	assert.Equal(t, "", m["title"])
	assert.Contains(t, m, "activity_status")
	assert.Nil(t, m["activity_status"])
}

func TestEvaluateCountsFailuresAndNotApplicables(t *testing.T) {
	engine := NewEngine(DefaultConfig(evaluationTime))
	r := Record{FieldIdentifier: "GB-1-200", FieldHierarchy: 1.0}

	result := engine.Evaluate(r)

	// Every attribute fails and every document lacks a start date.
	assert.Equal(t, 7, result.FailureCount)
	assert.Equal(t, 3, result.NotApplicables)
	assert.Equal(t, StatusFail, result.OverallStatus)
	assert.True(t, result.Failed())
}

func TestOverallStatusMatchesFailureCount(t *testing.T) {
	engine := NewEngine(DefaultConfig(evaluationTime).WithExemptions([]string{"ex"}))
	records := []Record{
		{},
		completeRecord("a", 1),
		completeRecord("b", 2),
		{FieldIdentifier: "ex", FieldHierarchy: 1.0, FieldTitle: "Short"},
		{FieldIdentifier: "c", FieldHierarchy: 1.0, FieldStartActual: "2015-01-01"},
	}

	for _, r := range records {
		result := engine.Evaluate(r)
		fails := 0
		for _, a := range result.Attributes {
			if a.Status == StatusFail {
				fails++
			}
		}
		for _, d := range result.Documents {
			if d.Status == StatusFail {
				fails++
			}
		}
		assert.Equal(t, fails, result.FailureCount)
		assert.Equal(t, result.FailureCount > 0, result.OverallStatus == StatusFail)
	}
}

func TestEvaluateAllPreservesInputOrder(t *testing.T) {
	engine := NewEngine(DefaultConfig(evaluationTime))
	records := make([]Record, 50)
	for i := range records {
		records[i] = completeRecord(fmt.Sprintf("GB-1-%03d", i), float64(1+i%2))
		if i%3 == 0 {
			records[i][FieldTitle] = "Short"
		}
	}

	results, err := engine.EvaluateAll(context.Background(), records, 4)

	require.NoError(t, err)
	require.Len(t, results, len(records))
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("GB-1-%03d", i), r.Identifier)
		assert.Equal(t, engine.Evaluate(records[i]), r)
	}
}

func TestEvaluateAllIsDeterministic(t *testing.T) {
	engine := NewEngine(DefaultConfig(evaluationTime))
	records := []Record{completeRecord("a", 1), {FieldIdentifier: "b"}, completeRecord("c", 2)}

	first, err := engine.EvaluateAll(context.Background(), records, 0)
	require.NoError(t, err)
	second, err := engine.EvaluateAll(context.Background(), records, 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEvaluateAllEmpty(t *testing.T) {
	engine := NewEngine(DefaultConfig(evaluationTime))

	results, err := engine.EvaluateAll(context.Background(), nil, 4)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEvaluateAllCancelled(t *testing.T) {
	engine := NewEngine(DefaultConfig(evaluationTime))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.EvaluateAll(ctx, []Record{completeRecord("a", 1)}, 1)

	assert.ErrorIs(t, err, context.Canceled)
}
