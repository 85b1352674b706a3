package assessment

import (
	"time"

	"github.com/dlclark/regexp2"
)

// acronymPattern matches either a run of two or more capitals ("UNDP") or
// letters separated by dots with an optional trailing dot ("U.N.", "e.g.").
// The token must not touch another word character on either side.
var acronymPattern = regexp2.MustCompile(`(?<!\w)(?:[A-Z]{2,}|[A-Za-z](?:\.[A-Za-z])+\.?)(?!\w)`, regexp2.None)

const patternTimeout = time.Second

func init() {
	acronymPattern.MatchTimeout = patternTimeout
	for _, p := range documentPatterns {
		p.MatchTimeout = patternTimeout
	}
}

// FindAcronyms returns the acronym-like tokens of text in order of
// appearance, leaving out anything in exceptions.
func FindAcronyms(text string, exceptions func(string) bool) []string {
	var found []string
	m, err := acronymPattern.FindStringMatch(text)
	for err == nil && m != nil {
		token := m.String()
		if exceptions == nil || !exceptions(token) {
			found = append(found, token)
		}
		m, err = acronymPattern.FindNextMatch(m)
	}
	return found
}

var documentLabels = map[string]string{
	DocumentBusinessCase:     "Business Case",
	DocumentLogicalFramework: "Logical Framework",
	DocumentAnnualReview:     "Annual Review",
}

// documentPatterns hold "<Label>.*Published", matched case-insensitively
// anywhere in a document title.
var documentPatterns = map[string]*regexp2.Regexp{
	DocumentBusinessCase:     regexp2.MustCompile(`Business Case.*Published`, regexp2.IgnoreCase),
	DocumentLogicalFramework: regexp2.MustCompile(`Logical Framework.*Published`, regexp2.IgnoreCase),
	DocumentAnnualReview:     regexp2.MustCompile(`Annual Review.*Published`, regexp2.IgnoreCase),
}

// DocumentPublished reports whether any title announces a published document
// of the given type. Unknown types are never published.
func DocumentPublished(docType string, titles []string) bool {
	pattern, ok := documentPatterns[docType]
	if !ok {
		return false
	}
	for _, title := range titles {
		if title == "" {
			continue
		}
		if matched, err := pattern.MatchString(title); err == nil && matched {
			return true
		}
	}
	return false
}
