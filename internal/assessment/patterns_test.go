package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindAcronyms(t *testing.T) {
	exceptions := func(token string) bool { return token == "UK" || token == "COVID" }

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "no acronyms", text: "Improving rural water supply", expected: nil},
		{name: "capital run", text: "Support to UNDP programmes", expected: []string{"UNDP"}},
		{name: "dotted letters", text: "Work with the U.N. agencies", expected: []string{"U.N."}},
		{name: "lowercase dotted", text: "Inputs, e.g. seeds", expected: []string{"e.g."}},
		{name: "dotted without trailing dot", text: "The U.N office", expected: []string{"U.N"}},
		{name: "order of appearance", text: "WFP and UNICEF joint work", expected: []string{"WFP", "UNICEF"}},
		{name: "single capital ignored", text: "A programme in Kenya", expected: nil},
		{name: "capitals inside a word ignored", text: "The ABCdef initiative", expected: nil},
		{name: "digits touching the token block it", text: "Phase AB1 rollout", expected: nil},
		{name: "punctuation is a boundary", text: "(WASH) services", expected: []string{"WASH"}},
		{name: "exceptions removed", text: "UK aid for COVID recovery via WHO", expected: []string{"WHO"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FindAcronyms(tt.text, exceptions))
		})
	}
}

func TestFindAcronymsWithoutExceptions(t *testing.T) {
	assert.Equal(t, []string{"UK"}, FindAcronyms("UK aid", nil))
}

func TestDocumentPublished(t *testing.T) {
	tests := []struct {
		name     string
		docType  string
		titles   []string
		expected bool
	}{
		{name: "exact label", docType: DocumentBusinessCase, titles: []string{"Business Case Published"}, expected: true},
		{name: "text between label and marker", docType: DocumentBusinessCase, titles: []string{"Business Case and Summary Sheet - Published May 2014"}, expected: true},
		{name: "case insensitive", docType: DocumentAnnualReview, titles: []string{"annual review 2019 published"}, expected: true},
		{name: "label anywhere in title", docType: DocumentLogicalFramework, titles: []string{"Project Logical Framework (Published)"}, expected: true},
		{name: "marker before label", docType: DocumentBusinessCase, titles: []string{"Published Business Case"}, expected: false},
		{name: "other type does not count", docType: DocumentAnnualReview, titles: []string{"Business Case Published"}, expected: false},
		{name: "second title matches", docType: DocumentLogicalFramework, titles: []string{"", "Logframe", "Logical Framework Published"}, expected: true},
		{name: "no titles", docType: DocumentBusinessCase, titles: nil, expected: false},
		{name: "unknown type", docType: "budget", titles: []string{"Budget Published"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DocumentPublished(tt.docType, tt.titles))
		})
	}
}
