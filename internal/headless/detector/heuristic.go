// Package detector decides when a statically fetched listing page is a
// JavaScript shell that must be rendered in a browser before parsing.
package detector

import (
	"bytes"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

const (
	defaultThreshold = 2048
	// scriptShare is the percentage of a small body that must be script for
	// it to count as a shell.
	scriptShare = 25
)

var shellMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
	[]byte("data-v-app"),
	[]byte("please enable javascript"),
	[]byte("you need to enable javascript"),
}

// Heuristic is a rule-based shell detector.
type Heuristic struct {
	SmallBody int
}

// NewHeuristic returns a detector; threshold <= 0 selects 2 KiB.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Heuristic{SmallBody: threshold}
}

// ShouldPromote reports whether res looks like a page whose listings are
// produced client-side. Non-2xx responses are never promoted.
func (h *Heuristic) ShouldPromote(res jobs.FetchResult) bool {
	if !res.OK() {
		return false
	}
	body := bytes.ToLower(res.Body)
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if len(body) < h.SmallBody && scriptPercent(body) >= scriptShare {
		return true
	}
	for _, marker := range shellMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptPercent returns the share of body covered by <script> elements.
// An unterminated tag counts through the end of the body.
func scriptPercent(body []byte) int {
	total := len(body)
	if total == 0 {
		return 0
	}
	open := []byte("<script")
	closing := []byte("</script>")
	covered := 0
	for pos := 0; pos < total; {
		i := bytes.Index(body[pos:], open)
		if i < 0 {
			break
		}
		start := pos + i
		end := total
		if gt := bytes.IndexByte(body[start:], '>'); gt >= 0 {
			content := start + gt + 1
			if j := bytes.Index(body[content:], closing); j >= 0 {
				end = content + j + len(closing)
			}
		}
		covered += end - start
		pos = end
	}
	return covered * 100 / total
}
