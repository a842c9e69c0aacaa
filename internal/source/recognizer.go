package source

import "strings"

// DefaultKeywords recognize internship-style titles.
var DefaultKeywords = []string{"intern", "internship", "co-op", "coop", "student"}

// Recognizer matches titles against a keyword set with case-insensitive
// substring matching, so "co-op" also matches "Co-operative".
type Recognizer struct {
	keywords []string
}

// NewRecognizer returns nil when keywords is empty, which accepts everything.
func NewRecognizer(keywords []string) *Recognizer {
	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return &Recognizer{keywords: cleaned}
}

// Match reports whether title contains any keyword.
func (r *Recognizer) Match(title string) bool {
	if r == nil {
		return true
	}
	lower := strings.ToLower(title)
	for _, k := range r.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
