// Package markdown reads curated internship lists published as GitHub README
// tables, in either pipe-table or embedded HTML table form.
package markdown

import (
	"bufio"
	"bytes"
	"context"
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/source"
)

const (
	continuation = "↳"
	closedMarker = "🔒"
)

var (
	mdLink   = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	htmlLink = regexp.MustCompile(`(?i)href\s*=\s*"([^"]+)"`)
	lineBr   = regexp.MustCompile(`(?i)<\s*/?\s*br\s*/?\s*>`)
)

// Adapter turns README tables into raw records.
type Adapter struct {
	base source.Base
}

// New builds the adapter around base.
func New(base source.Base) *Adapter {
	return &Adapter{base: base}
}

// Name implements jobs.Adapter.
func (a *Adapter) Name() string { return a.base.Name }

// FetchPostings implements jobs.Adapter.
func (a *Adapter) FetchPostings(ctx context.Context) ([]jobs.RawRecord, error) {
	return a.base.Collect(ctx, func(ctx context.Context, u string) ([]jobs.RawRecord, error) {
		body, _, err := a.base.FetchBody(ctx, u)
		if err != nil {
			return nil, err
		}
		return Parse(body)
	}), nil
}

type columns struct {
	company, title, location, link, posted int
}

var defaultColumns = columns{company: 0, title: 1, location: 2, link: 3, posted: 4}

// Parse extracts rows from every table in body. Closed rows are skipped and
// continuation rows inherit the previous company.
func Parse(body []byte) ([]jobs.RawRecord, error) {
	if bytes.Contains(bytes.ToLower(body), []byte("<table")) {
		return parseHTMLTables(body)
	}
	return parsePipeTables(body), nil
}

// parsePipeTables reads pipe tables line by line. A row is a header only
// when a separator row follows it, so the column map is fixed for the rest
// of the table.
func parsePipeTables(body []byte) []jobs.RawRecord {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}

	var (
		out     []jobs.RawRecord
		cols    = defaultColumns
		company string
	)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, "|") {
			cols = defaultColumns
			company = ""
			continue
		}
		cells := splitRow(line)
		if isSeparator(cells) {
			continue
		}
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "|") && isSeparator(splitRow(lines[i+1])) {
			cols = defaultColumns
			if hdr, ok := headerColumns(cells); ok {
				cols = hdr
			}
			company = ""
			i++
			continue
		}
		if raw, ok := buildRecord(cells, cols, &company); ok {
			out = append(out, raw)
		}
	}
	return out
}

func parseHTMLTables(body []byte) ([]jobs.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var out []jobs.RawRecord
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		cols := defaultColumns
		company := ""
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if th := row.Find("th"); th.Length() > 0 {
				cells := make([]string, 0, th.Length())
				th.Each(func(_ int, c *goquery.Selection) { cells = append(cells, c.Text()) })
				if hdr, ok := headerColumns(cells); ok {
					cols = hdr
				}
				return
			}
			cells := make([]string, 0, 5)
			row.Find("td").Each(func(_ int, c *goquery.Selection) {
				inner, _ := c.Html()
				cells = append(cells, inner)
			})
			if raw, ok := buildRecord(cells, cols, &company); ok {
				out = append(out, raw)
			}
		})
	})
	return out, nil
}

func buildRecord(cells []string, cols columns, company *string) (jobs.RawRecord, bool) {
	if len(cells) <= max(cols.company, cols.title) {
		return jobs.RawRecord{}, false
	}
	row := strings.Join(cells, " ")
	if strings.Contains(row, closedMarker) {
		// Closed rows still set the company for their continuations.
		if name := cellText(cells[cols.company]); name != "" && name != continuation {
			*company = name
		}
		return jobs.RawRecord{}, false
	}

	name := cellText(cells[cols.company])
	switch {
	case name == continuation || name == "":
		name = *company
	default:
		*company = name
	}

	raw := jobs.RawRecord{
		Company: name,
		Title:   cellText(cells[cols.title]),
	}
	if cols.location >= 0 && cols.location < len(cells) {
		raw.Location = locationText(cells[cols.location])
	}
	if cols.link >= 0 && cols.link < len(cells) {
		raw.URL = firstLink(cells[cols.link])
	}
	if raw.URL == "" {
		raw.URL = firstLink(cells[cols.title])
	}
	if cols.posted >= 0 && cols.posted < len(cells) {
		raw.PostedAt = cellText(cells[cols.posted])
	}
	return raw, true
}

func headerColumns(cells []string) (columns, bool) {
	cols := columns{company: -1, title: -1, location: -1, link: -1, posted: -1}
	for i, c := range cells {
		for _, tok := range headerTokens(c) {
			switch tok {
			case "company", "employer":
				cols.company = i
			case "role", "roles", "title", "position":
				cols.title = i
			case "location", "locations":
				cols.location = i
			case "application", "link", "apply":
				cols.link = i
			case "date", "age", "posted":
				cols.posted = i
			default:
				continue
			}
			break
		}
	}
	if cols.company < 0 || cols.title < 0 {
		return columns{}, false
	}
	return cols, true
}

func headerTokens(cell string) []string {
	return strings.FieldsFunc(strings.ToLower(cellText(cell)), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func splitRow(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

// cellText strips markdown emphasis, links and HTML from a cell.
func cellText(cell string) string {
	cell = mdLink.ReplaceAllString(cell, "$1")
	cell = strings.NewReplacer("**", "", "__", "").Replace(cell)
	if strings.Contains(cell, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(cell)); err == nil {
			cell = doc.Text()
		}
	} else {
		cell = html.UnescapeString(cell)
	}
	return strings.Join(strings.Fields(cell), " ")
}

func locationText(cell string) string {
	if strings.Contains(strings.ToLower(cell), "<details") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(cell)); err == nil {
			doc.Find("summary").Remove()
			cell, _ = doc.Find("details").First().Html()
		}
	}
	parts := lineBr.Split(cell, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := cellText(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "; ")
}

func firstLink(cell string) string {
	if m := htmlLink.FindStringSubmatch(cell); m != nil {
		return strings.TrimSpace(html.UnescapeString(m[1]))
	}
	if m := mdLink.FindStringSubmatch(cell); m != nil {
		return strings.TrimSpace(m[2])
	}
	return ""
}
