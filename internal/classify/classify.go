// Package classify decides whether recovered ticket text is a train ticket,
// a flight ticket or neither. Classification is a pure function of the text;
// the signal vocabulary ships embedded with the binary.
package classify

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/manifest/internal/tickets"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// Vocabulary holds the lower-case terms each rule looks for.
type Vocabulary struct {
	Veto   Veto     `yaml:"veto"`
	Flight []string `yaml:"flight"`
	Train  []string `yaml:"train"`
}

// Veto rejects documents such as invoices unless a ticket term overrides it.
type Veto struct {
	Terms  []string `yaml:"terms"`
	Unless []string `yaml:"unless"`
}

var (
	trainPNR     = regexp.MustCompile(`\b\d{10}\b`)
	flightNumber = regexp.MustCompile(`(?i)\b(?:IX|I5|AI|6E|UK|SG|QP)\s*-?\s*\d{3,4}\b`)
)

// ParseVocabulary decodes a YAML vocabulary document.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if len(v.Flight) == 0 || len(v.Train) == 0 {
		return nil, fmt.Errorf("parse vocabulary: flight and train terms required")
	}
	v.Veto.Terms = lower(v.Veto.Terms)
	v.Veto.Unless = lower(v.Veto.Unless)
	v.Flight = lower(v.Flight)
	v.Train = lower(v.Train)
	return &v, nil
}

// DefaultVocabulary returns the embedded vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(vocabularyYAML)
	if err != nil {
		panic(err)
	}
	return v
}

// Classifier applies the ordered classification rules with one vocabulary.
type Classifier struct {
	vocab *Vocabulary
}

// New creates a Classifier. A nil vocabulary selects the embedded one.
func New(vocab *Vocabulary) *Classifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Classifier{vocab: vocab}
}

// Scores are the per-category signal counts behind a decision.
type Scores struct {
	Flight int
	Train  int
}

// Classify returns TRAIN, FLIGHT or UNKNOWN for text.
func (c *Classifier) Classify(text string) tickets.Category {
	category, _ := c.Explain(text)
	return category
}

// Explain is Classify plus the signal scores it was decided on.
func (c *Classifier) Explain(text string) (tickets.Category, Scores) {
	var s Scores
	if strings.TrimSpace(text) == "" {
		return tickets.CategoryUnknown, s
	}

	t := strings.ToLower(text)
	if containsAny(t, c.vocab.Veto.Terms) && !containsAny(t, c.vocab.Veto.Unless) {
		return tickets.CategoryUnknown, s
	}

	s.Flight = count(t, c.vocab.Flight)
	s.Train = count(t, c.vocab.Train)
	if trainPNR.MatchString(text) {
		s.Train++
	}

	switch {
	case s.Flight >= 2 && s.Flight > s.Train:
		return tickets.CategoryFlight, s
	case s.Train > 0:
		return tickets.CategoryTrain, s
	case s.Flight > 0 && flightNumber.MatchString(text):
		return tickets.CategoryFlight, s
	}
	return tickets.CategoryUnknown, s
}

var defaultClassifier = New(nil)

// Classify classifies text with the embedded vocabulary.
func Classify(text string) tickets.Category {
	return defaultClassifier.Classify(text)
}

func count(t string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(t, term) {
			n++
		}
	}
	return n
}

func containsAny(t string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(t, term) {
			return true
		}
	}
	return false
}

func lower(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			out = append(out, term)
		}
	}
	return out
}
