package classify

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsEntertainment(t *testing.T) {
	tax := DefaultTaxonomy()

	tests := []struct {
		title string
		desc  string
		want  bool
	}{
		{"New action movie trailer breaks streaming records", "", true},
		{"Shooting leaves two dead downtown", "Police investigating", false},
		{"Thriller novel tops charts", "", true},
		{"Netflix announces new true crime series", "", true},
		{"Man killed in robbery", "Suspect arrested after fatal shooting", false},
		{"Leaked 1080p WEB-DL of crime drama", "", true},
		// substring semantics: "rating" inside "celebrating"
		{"City celebrating anniversary marred by shooting", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := tax.IsEntertainment(tt.title, tt.desc)
			if got != tt.want {
				t.Errorf("IsEntertainment(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestClassifyEntertainmentWinsOverCrimeKeywords(t *testing.T) {
	tax := DefaultTaxonomy()

	// Crime keywords present, but the entertainment term short-circuits.
	got := tax.Classify("Movie depicts mass shooting and murder", "killed, fatal, gunman")
	if got.Type != TypeFilteredOut {
		t.Errorf("Type = %q, want %q", got.Type, TypeFilteredOut)
	}
	if got.Severity != SeverityFiltered {
		t.Errorf("Severity = %q, want %q", got.Severity, SeverityFiltered)
	}
	if got.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", got.Confidence)
	}
}

func TestClassifyMassViolence(t *testing.T) {
	tax := DefaultTaxonomy()

	got := tax.Classify("Mass shooting leaves multiple victims at rally", "")
	if got.Type != "mass_violence" {
		t.Fatalf("Type = %q, want mass_violence", got.Type)
	}
	if got.Severity != SeverityCritical {
		t.Errorf("Severity = %q, want %q", got.Severity, SeverityCritical)
	}
	if got.Confidence < 0.3 {
		t.Errorf("Confidence = %v, want >= 0.3", got.Confidence)
	}
}

func TestClassifyBelowBucketFloorNeverWins(t *testing.T) {
	tax := DefaultTaxonomy()

	// One of six shooting keywords matches: confidence 1/6 ~ 0.167,
	// below the 0.5 shooting floor, and nothing else matches.
	got := tax.Classify("Firearm recovered near park", "")
	if got.Type != TypeFilteredOut {
		t.Errorf("Type = %q, want %q (confidence below floor)", got.Type, TypeFilteredOut)
	}
}

func TestClassifyStrictGreaterDisplacement(t *testing.T) {
	tax := DefaultTaxonomy()

	// homicide: 3/7 keywords (killed, dead, fatal) = 0.43, floor 0.4.
	// shooting: 4/6 (shooting, shot, gun via gunman, gunman) = 0.67, floor 0.5.
	// The later shooting bucket is strictly greater and displaces homicide.
	got := tax.Classify("Gunman shot and killed man, another dead in fatal shooting", "")
	if got.Type != "shooting" {
		t.Errorf("Type = %q, want shooting (stronger later bucket)", got.Type)
	}
	if got.Severity != SeverityMedium {
		t.Errorf("Severity = %q, want %q", got.Severity, SeverityMedium)
	}
}

func TestClassifyTieKeepsEarlierBucket(t *testing.T) {
	tax := &Taxonomy{
		Buckets: []Bucket{
			{Name: "first", Keywords: []string{"alpha", "beta"}, Severity: SeverityHigh, MinConfidence: 0.3},
			{Name: "second", Keywords: []string{"gamma", "delta"}, Severity: SeverityMedium, MinConfidence: 0.3},
		},
		Entertainment: []string{},
	}

	// Both buckets score 1/2; the tie keeps the first-evaluated bucket.
	got := tax.Classify("alpha gamma", "")
	if got.Type != "first" {
		t.Errorf("Type = %q, want first (ties keep earlier bucket)", got.Type)
	}
	if got.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", got.Confidence)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	tax := DefaultTaxonomy()

	title := "Homicide investigation after man killed, two dead in fatal attack"
	desc := "Police say the victim was slain"

	first := tax.Classify(title, desc)
	for i := 0; i < 10; i++ {
		got := tax.Classify(title, desc)
		if got != first {
			t.Fatalf("run %d: Classify returned %+v, first run returned %+v", i, got, first)
		}
	}
}

func TestClassifyNoMatch(t *testing.T) {
	tax := DefaultTaxonomy()

	got := tax.Classify("City council approves budget for new library", "")
	if got.Type != TypeFilteredOut {
		t.Errorf("Type = %q, want %q", got.Type, TypeFilteredOut)
	}
	if got.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", got.Confidence)
	}
}

func TestDefaultTaxonomyShape(t *testing.T) {
	tax := DefaultTaxonomy()

	wantOrder := []string{"mass_violence", "school_incident", "homicide", "shooting", "stabbing"}
	if len(tax.Buckets) != len(wantOrder) {
		t.Fatalf("got %d buckets, want %d", len(tax.Buckets), len(wantOrder))
	}
	for i, name := range wantOrder {
		if tax.Buckets[i].Name != name {
			t.Errorf("bucket %d = %q, want %q", i, tax.Buckets[i].Name, name)
		}
	}
	if len(tax.Entertainment) == 0 {
		t.Error("Entertainment list should not be empty")
	}
}

func TestLoadTaxonomyMissingFile(t *testing.T) {
	tax, err := LoadTaxonomy(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadTaxonomy failed: %v", err)
	}
	if len(tax.Buckets) != 5 {
		t.Errorf("got %d buckets, want defaults (5)", len(tax.Buckets))
	}
}

func TestLoadTaxonomyOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	rules := `buckets:
  - name: arson
    keywords: ["arson", "fire set", "blaze"]
    severity: high
    min_confidence: 0.3
`
	if err := os.WriteFile(path, []byte(rules), 0644); err != nil {
		t.Fatal(err)
	}

	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("LoadTaxonomy failed: %v", err)
	}
	if len(tax.Buckets) != 1 || tax.Buckets[0].Name != "arson" {
		t.Fatalf("buckets = %+v, want single arson bucket", tax.Buckets)
	}
	// Default exclusion list is retained when the override omits it.
	if len(tax.Entertainment) == 0 {
		t.Error("Entertainment defaults should be kept")
	}

	got := tax.Classify("Arson suspected after blaze destroys warehouse", "")
	if got.Type != "arson" {
		t.Errorf("Type = %q, want arson", got.Type)
	}
}

func TestLoadTaxonomyInvalid(t *testing.T) {
	tests := []struct {
		name  string
		rules string
	}{
		{"no buckets", `entertainment: ["movie"]`},
		{"missing name", "buckets:\n  - keywords: [\"x\"]\n    severity: low\n"},
		{"no keywords", "buckets:\n  - name: a\n    severity: low\n"},
		{"bad confidence", "buckets:\n  - name: a\n    keywords: [\"x\"]\n    severity: low\n    min_confidence: 1.5\n"},
		{"not yaml", `{{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.yaml")
			if err := os.WriteFile(path, []byte(tt.rules), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadTaxonomy(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
