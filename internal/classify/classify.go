package classify

import "strings"

// Result is the outcome of classifying one article.
type Result struct {
	Type       string
	Severity   string
	Confidence float64
}

// filteredOut is the result for articles that should not become incidents.
var filteredOut = Result{Type: TypeFilteredOut, Severity: SeverityFiltered, Confidence: 0.0}

// IsEntertainment reports whether the article text matches any entertainment
// term. Matching is case-insensitive substring search over title and
// description, so "games" matches the term "game". First match wins.
func (t *Taxonomy) IsEntertainment(title, description string) bool {
	text := strings.ToLower(title + " " + description)
	for _, kw := range t.Entertainment {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Classify scores the article against every bucket and returns the
// highest-confidence bucket that clears its own floor and the global floor.
//
// Confidence is the keyword-overlap ratio matched/total for the bucket,
// capped at 1.0. It is deterministic for identical input and is not a
// calibrated probability. A later bucket displaces the current best only
// when its confidence is strictly greater, so ties keep the earlier bucket.
func (t *Taxonomy) Classify(title, description string) Result {
	if t.IsEntertainment(title, description) {
		return filteredOut
	}

	text := strings.ToLower(title + " " + description)

	best := Result{Type: "other", Severity: SeverityLow, Confidence: 0.0}
	for _, b := range t.Buckets {
		matched := 0
		for _, kw := range b.Keywords {
			if strings.Contains(text, kw) {
				matched++
			}
		}
		confidence := float64(matched) / float64(len(b.Keywords))
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence >= b.MinConfidence && confidence > best.Confidence {
			best = Result{Type: b.Name, Severity: b.Severity, Confidence: confidence}
		}
	}

	if best.Confidence < globalFloor {
		return filteredOut
	}
	return best
}
