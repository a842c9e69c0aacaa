package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/apply"
)

const (
	refXPath = "xpath:"
	refCSS   = "css:"
)

// Page is one exclusive tab. It implements apply.Session.
type Page struct {
	tab        context.Context
	cancel     context.CancelFunc
	release    func()
	navTimeout time.Duration
	logger     *zap.Logger
	closeOnce  sync.Once
}

// Close closes the tab and frees its slot. It is safe to call more than once.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		if p.release != nil {
			p.release()
		}
	})
	return nil
}

// run executes actions on the tab, bounded by ctx.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tab)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate implements apply.Page.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()
	if err := p.run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// URL implements apply.Page.
func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return loc, nil
}

// Find implements apply.Page.
func (p *Page) Find(ctx context.Context, loc apply.Locator) (apply.Element, bool, error) {
	if loc.Kind == apply.ByCSS {
		n, err := p.count(ctx, fmt.Sprintf("document.querySelectorAll(%s).length", jsString(loc.Value)))
		if err != nil || n == 0 {
			return apply.Element{}, false, err
		}
		return apply.Element{Ref: refCSS + loc.Value}, true, nil
	}
	query, err := Compile(loc)
	if err != nil {
		return apply.Element{}, false, err
	}
	return p.findXPath(ctx, query)
}

func (p *Page) findXPath(ctx context.Context, query string) (apply.Element, bool, error) {
	n, err := p.count(ctx, fmt.Sprintf(
		"document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength",
		jsString(query)))
	if err != nil || n == 0 {
		return apply.Element{}, false, err
	}
	return apply.Element{Ref: refXPath + first(query)}, true, nil
}

func (p *Page) count(ctx context.Context, expr string) (int, error) {
	var n int
	if err := p.run(ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, fmt.Errorf("evaluate locator: %w", err)
	}
	return n, nil
}

// Value implements apply.Page.
func (p *Page) Value(ctx context.Context, el apply.Element) (string, error) {
	sel, opt, err := selector(el)
	if err != nil {
		return "", err
	}
	var v string
	if err := p.run(ctx, chromedp.Value(sel, &v, opt)); err != nil {
		return "", fmt.Errorf("read value: %w", err)
	}
	return v, nil
}

// Type implements apply.Page.
func (p *Page) Type(ctx context.Context, el apply.Element, text string) error {
	sel, opt, err := selector(el)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.SendKeys(sel, text, opt))
}

// Click implements apply.Page.
func (p *Page) Click(ctx context.Context, el apply.Element) error {
	sel, opt, err := selector(el)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.ScrollIntoView(sel, opt), chromedp.Click(sel, opt))
}

// Upload implements apply.Page.
func (p *Page) Upload(ctx context.Context, el apply.Element, path string) error {
	sel, opt, err := selector(el)
	if err != nil {
		return err
	}
	if err := p.run(ctx, chromedp.SetUploadFiles(sel, []string{path}, opt)); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

// Attr implements apply.Page.
func (p *Page) Attr(ctx context.Context, el apply.Element, name string) (string, bool, error) {
	sel, opt, err := selector(el)
	if err != nil {
		return "", false, err
	}
	var (
		v  string
		ok bool
	)
	if err := p.run(ctx, chromedp.AttributeValue(sel, name, &v, &ok, opt)); err != nil {
		return "", false, fmt.Errorf("read attribute %s: %w", name, err)
	}
	return v, ok, nil
}

// Questions implements apply.Page.
func (p *Page) Questions(ctx context.Context, loc apply.Locator) ([]apply.Question, error) {
	if loc.Kind == apply.ByCSS {
		return nil, fmt.Errorf("questions need an xpath locator, got %s", loc)
	}
	query, err := Compile(loc)
	if err != nil {
		return nil, err
	}
	var texts []string
	expr := fmt.Sprintf(`(() => {
  const r = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
  const out = [];
  for (let i = 0; i < r.snapshotLength; i++) {
    const n = r.snapshotItem(i);
    out.push(((n.innerText || n.textContent) || "").trim());
  }
  return out;
})()`, jsString(query))
	if err := p.run(ctx, chromedp.Evaluate(expr, &texts)); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]apply.Question, 0, len(texts))
	for i, text := range texts {
		if text == "" {
			continue
		}
		out = append(out, apply.Question{
			Text:    text,
			Element: apply.Element{Ref: refXPath + nth(query, i+1)},
		})
	}
	return out, nil
}

// NearestInput implements apply.Page.
func (p *Page) NearestInput(ctx context.Context, prompt apply.Element) (apply.Element, bool, error) {
	base, err := xpathRef(prompt)
	if err != nil {
		return apply.Element{}, false, err
	}
	return p.findXPath(ctx, nearestInput(base))
}

// NearestChoice implements apply.Page.
func (p *Page) NearestChoice(ctx context.Context, prompt apply.Element, option string) (apply.Element, bool, error) {
	base, err := xpathRef(prompt)
	if err != nil {
		return apply.Element{}, false, err
	}
	return p.findXPath(ctx, base+followingChoice(option))
}

// HTML implements apply.Page.
func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture html: %w", err)
	}
	return html, nil
}

func selector(el apply.Element) (string, chromedp.QueryOption, error) {
	switch {
	case strings.HasPrefix(el.Ref, refCSS):
		return strings.TrimPrefix(el.Ref, refCSS), chromedp.ByQuery, nil
	case strings.HasPrefix(el.Ref, refXPath):
		return strings.TrimPrefix(el.Ref, refXPath), chromedp.BySearch, nil
	default:
		return "", nil, fmt.Errorf("element %q was not produced by this page", el.Ref)
	}
}

func xpathRef(el apply.Element) (string, error) {
	if !strings.HasPrefix(el.Ref, refXPath) {
		return "", fmt.Errorf("element %q is not an xpath element", el.Ref)
	}
	return strings.TrimPrefix(el.Ref, refXPath), nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
