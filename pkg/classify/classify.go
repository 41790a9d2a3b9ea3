// Package classify decides whether an author belongs to world rather than domestic literature.
package classify

import (
	"regexp"
	"strings"
)

// Classifier tells foreign authors apart from domestic ones.
type Classifier interface {
	IsForeign(authorName string) bool
}

// HeuristicClassifier matches known surnames, Russian patronymics and nobility particles.
// The rules are substring based and knowingly imprecise.
type HeuristicClassifier struct {
	surnames map[string]struct{}
}

var _ Classifier = (*HeuristicClassifier)(nil)

// NewHeuristicClassifier returns a classifier over the built-in surname list plus extra.
func NewHeuristicClassifier(extra ...string) *HeuristicClassifier {
	c := &HeuristicClassifier{surnames: make(map[string]struct{}, len(foreignSurnames)+len(extra))}
	for _, s := range foreignSurnames {
		c.surnames[s] = struct{}{}
	}
	for _, s := range extra {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			c.surnames[s] = struct{}{}
		}
	}
	return c
}

var dePattern = regexp.MustCompile(` de[ ,]`)

// IsForeign expects names in "Surname, Given names" order. The surname is the part before
// the first comma and patronymics are looked for only between the first and second comma.
func (c *HeuristicClassifier) IsForeign(authorName string) bool {
	if authorName == "" {
		return false
	}

	parts := strings.Split(authorName, ",")
	if _, ok := c.surnames[strings.ToLower(strings.TrimSpace(parts[0]))]; ok {
		return true
	}

	if len(parts) > 1 {
		words := strings.Fields(strings.ToLower(parts[1]))
		if len(words) > 1 {
			for _, w := range words[1:] {
				if strings.HasSuffix(w, "ič") || strings.HasSuffix(w, "evna") || strings.HasSuffix(w, "ovna") {
					return true
				}
			}
		}
	}

	low := strings.ToLower(authorName)
	switch {
	case strings.Contains(low, " von "), strings.HasPrefix(low, "von "):
		return true
	case dePattern.MatchString(low), strings.HasPrefix(low, "de "):
		return true
	case strings.Contains(low, " del "), strings.Contains(low, " della "), strings.Contains(low, " di "):
		return true
	}
	return false
}
