// Package classify scores news articles against a keyword taxonomy of
// violent-crime categories and filters out entertainment content.
package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Severity labels assigned to classified incidents.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
	SeverityFiltered = "filtered"
)

// TypeFilteredOut is the classification for articles rejected by the
// entertainment filter or falling below every confidence floor.
const TypeFilteredOut = "filtered_out"

// Bucket is one crime-type category: its keyword set, the severity label
// assigned to matches, and the minimum confidence required to qualify.
type Bucket struct {
	Name          string   `yaml:"name"`
	Keywords      []string `yaml:"keywords"`
	Severity      string   `yaml:"severity"`
	MinConfidence float64  `yaml:"min_confidence"`
}

// Taxonomy holds the ordered bucket list and the entertainment exclusion
// terms. Bucket order is the iteration order during classification; ties on
// confidence keep the earlier bucket.
type Taxonomy struct {
	Buckets       []Bucket `yaml:"buckets"`
	Entertainment []string `yaml:"entertainment"`
}

// globalFloor is the minimum confidence any classification must reach,
// independent of per-bucket floors.
const globalFloor = 0.3

// DefaultTaxonomy returns the built-in bucket and exclusion tables.
// Thresholds are hand-tuned operational values, not derived constants.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		Buckets: []Bucket{
			{
				Name:          "mass_violence",
				Keywords:      []string{"mass shooting", "mass casualty", "multiple victims", "rampage", "mass murder"},
				Severity:      SeverityCritical,
				MinConfidence: 0.3,
			},
			{
				Name:          "school_incident",
				Keywords:      []string{"school shooting", "school", "campus", "student", "teacher", "education"},
				Severity:      SeverityCritical,
				MinConfidence: 0.3,
			},
			{
				Name:          "homicide",
				Keywords:      []string{"homicide", "murder", "killed", "death", "dead", "fatal", "slain"},
				Severity:      SeverityHigh,
				MinConfidence: 0.4,
			},
			{
				Name:          "shooting",
				Keywords:      []string{"shooting", "shot", "gun", "firearm", "gunman", "gunshot"},
				Severity:      SeverityMedium,
				MinConfidence: 0.5,
			},
			{
				Name:          "stabbing",
				Keywords:      []string{"stabbing", "stabbed", "knife", "cut", "slashed"},
				Severity:      SeverityMedium,
				MinConfidence: 0.5,
			},
		},
		Entertainment: []string{
			"movie", "film", "dvd", "blu-ray", "streaming", "netflix", "hulu", "amazon prime",
			"imdb", "rating", "genre", "drama", "comedy", "action", "thriller", "horror",
			"plot", "synopsis", "cast", "director", "producer", "awards", "nominations",
			"trailer", "review", "critic", "box office", "theater", "cinema", "premiere",
			"sequel", "remake", "adaptation", "based on", "inspired by", "fictional",
			"character", "actor", "actress", "starring", "featuring", "performance",
			"amzn", "web-dl", "h264", "1080p", "720p", "4k", "uhd", "torrent", "download",
		},
	}
}

// LoadTaxonomy reads a taxonomy rules file in YAML. A missing file yields
// the defaults; a present but invalid file is an error.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTaxonomy(), nil
		}
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy file: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("taxonomy file %s: %w", path, err)
	}

	// An override may replace only the buckets; keep the default
	// entertainment list unless one is provided.
	if len(t.Entertainment) == 0 {
		t.Entertainment = DefaultTaxonomy().Entertainment
	}
	return &t, nil
}

// validate rejects taxonomies that would make classification meaningless.
func (t *Taxonomy) validate() error {
	if len(t.Buckets) == 0 {
		return fmt.Errorf("no buckets defined")
	}
	seen := make(map[string]bool, len(t.Buckets))
	for i, b := range t.Buckets {
		if b.Name == "" {
			return fmt.Errorf("bucket %d: missing name", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("bucket %q: duplicate name", b.Name)
		}
		seen[b.Name] = true
		if len(b.Keywords) == 0 {
			return fmt.Errorf("bucket %q: no keywords", b.Name)
		}
		if b.Severity == "" {
			return fmt.Errorf("bucket %q: missing severity", b.Name)
		}
		if b.MinConfidence < 0 || b.MinConfidence > 1 {
			return fmt.Errorf("bucket %q: min_confidence %v out of range [0,1]", b.Name, b.MinConfidence)
		}
	}
	return nil
}
