// Package catalog turns configured source descriptions into adapters.
package catalog

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/config"
	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/source"
	"github.com/JakeFAU/jobswipe/internal/source/dom"
	"github.com/JakeFAU/jobswipe/internal/source/feed"
	"github.com/JakeFAU/jobswipe/internal/source/jsonapi"
	"github.com/JakeFAU/jobswipe/internal/source/markdown"
)

// Deps are the shared collaborators handed to every adapter.
type Deps struct {
	Fetcher  jobs.Fetcher
	Renderer dom.Renderer
	Promoter dom.Promoter
	// Keywords feed the target-role recognizer; empty uses the built-in set.
	Keywords []string
	Logger   *zap.Logger
}

// Build creates one adapter per source, in order.
func Build(specs []config.SourceConfig, deps Deps) ([]jobs.Adapter, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	keywords := deps.Keywords
	if len(keywords) == 0 {
		keywords = source.DefaultKeywords
	}
	recognizer := source.NewRecognizer(keywords)

	adapters := make([]jobs.Adapter, 0, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		base := source.Base{
			Name:       spec.Name,
			Tag:        Tag(spec),
			URLs:       spec.URLs,
			Cap:        spec.Cap,
			Recognizer: recognizer,
			Fetcher:    deps.Fetcher,
			Logger:     logger.Named(spec.Name),
		}
		if spec.AllRoles {
			base.Recognizer = nil
		}

		switch spec.Kind {
		case config.SourceMarkdown:
			adapters = append(adapters, markdown.New(base))
		case config.SourceDOM:
			var opts []dom.Option
			if spec.Headless && deps.Renderer != nil {
				opts = append(opts, dom.WithRenderer(deps.Renderer, deps.Promoter))
			}
			adapters = append(adapters, dom.New(base, dom.Config{
				Cards:   spec.Cards,
				Fields:  Cascade(spec.Fields),
				Company: spec.Company,
			}, opts...))
		case config.SourceJSON:
			adapters = append(adapters, jsonapi.New(base, jsonapi.Config{
				ItemsKeys:       spec.Keys["items"],
				TitleKeys:       spec.Keys["title"],
				CompanyKeys:     spec.Keys["company"],
				LocationKeys:    spec.Keys["location"],
				URLKeys:         spec.Keys["url"],
				DescriptionKeys: spec.Keys["description"],
				PostedKeys:      spec.Keys["posted"],
				Company:         spec.Company,
			}))
		case config.SourceFeed:
			adapters = append(adapters, feed.New(base, feed.Config{
				Company:        spec.Company,
				TitleSeparator: spec.TitleSeparator,
			}))
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", spec.Name, spec.Kind)
		}
	}
	return adapters, nil
}

// Tag is the source label stamped on postings: the configured tag, else
// Career-<Company> for single-employer boards, else the source name.
func Tag(spec config.SourceConfig) string {
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return tag
	}
	if company := strings.TrimSpace(spec.Company); company != "" {
		return "Career-" + company
	}
	return spec.Name
}

// Cascade converts configured field selectors into extraction strategies.
// An entry of the form "css@attr" reads attr; a bare selector reads text.
func Cascade(fields map[string][]string) source.FieldCascade {
	return source.FieldCascade{
		Title:       strategies(fields["title"]),
		Company:     strategies(fields["company"]),
		Location:    strategies(fields["location"]),
		URL:         strategies(fields["url"]),
		Description: strategies(fields["description"]),
		PostedAt:    strategies(fields["posted"]),
	}
}

func strategies(entries []string) []source.Strategy {
	if len(entries) == 0 {
		return nil
	}
	out := make([]source.Strategy, 0, len(entries))
	for _, entry := range entries {
		out = append(out, strategy(entry))
	}
	return out
}

func strategy(entry string) source.Strategy {
	entry = strings.TrimSpace(entry)
	if i := strings.LastIndex(entry, "@"); i >= 0 {
		sel, attr := strings.TrimSpace(entry[:i]), strings.TrimSpace(entry[i+1:])
		if attr != "" && !strings.ContainsAny(attr, "]'\" ") {
			return source.Attr(sel, attr)
		}
	}
	return source.Text(entry)
}
