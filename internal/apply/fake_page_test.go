package apply

import (
	"context"
	"fmt"
	"sync"
)

// fakeNode is one element of a scripted page.
type fakeNode struct {
	value    string
	attrs    map[string]string
	uploaded string
	onClick  func(p *fakePage)
}

type fakeQuestion struct {
	text    string
	input   *fakeNode
	choices map[string]*fakeNode
}

// fakePage is a key/value DOM: locators resolve only when registered
// verbatim. Clicks run the node's script, which may reshape the page.
type fakePage struct {
	mu         sync.Mutex
	url        string
	nodes      map[Locator]*fakeNode
	refs       map[string]*fakeNode
	questions  map[Locator][]*fakeQuestion
	qrefs      map[string]*fakeQuestion
	clicks     []Locator
	navigated  []string
	onNavigate func(p *fakePage, url string)
	closed     bool
	html       string
}

func newFakePage() *fakePage {
	return &fakePage{
		nodes:     map[Locator]*fakeNode{},
		refs:      map[string]*fakeNode{},
		questions: map[Locator][]*fakeQuestion{},
		qrefs:     map[string]*fakeQuestion{},
		html:      "<html><body>fake</body></html>",
	}
}

// add registers node under loc. Callers holding p.mu use addLocked.
func (p *fakePage) add(loc Locator, node *fakeNode) *fakeNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(loc, node)
}

func (p *fakePage) addLocked(loc Locator, node *fakeNode) *fakeNode {
	if node == nil {
		node = &fakeNode{}
	}
	p.nodes[loc] = node
	p.refs[loc.String()] = node
	return node
}

func (p *fakePage) removeLocked(locs ...Locator) {
	for _, loc := range locs {
		delete(p.nodes, loc)
	}
}

func (p *fakePage) addQuestion(loc Locator, q *fakeQuestion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.questions[loc] = append(p.questions[loc], q)
}

func (p *fakePage) node(loc Locator) *fakeNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nodes[loc]
}

func (p *fakePage) clickCount(loc Locator) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.clicks {
		if c == loc {
			n++
		}
	}
	return n
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	p.url = url
	p.navigated = append(p.navigated, url)
	hook := p.onNavigate
	p.mu.Unlock()
	if hook != nil {
		hook(p, url)
	}
	return nil
}

func (p *fakePage) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) Find(_ context.Context, loc Locator) (Element, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.nodes[loc]; !ok {
		return Element{}, false, nil
	}
	return Element{Ref: loc.String()}, true, nil
}

func (p *fakePage) lookup(el Element) (*fakeNode, error) {
	n, ok := p.refs[el.Ref]
	if !ok {
		return nil, fmt.Errorf("stale element %s", el.Ref)
	}
	return n, nil
}

func (p *fakePage) Value(_ context.Context, el Element) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.lookup(el)
	if err != nil {
		return "", err
	}
	return n.value, nil
}

func (p *fakePage) Type(_ context.Context, el Element, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.lookup(el)
	if err != nil {
		return err
	}
	n.value += text
	return nil
}

func (p *fakePage) Click(_ context.Context, el Element) error {
	p.mu.Lock()
	n, err := p.lookup(el)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	for loc, candidate := range p.nodes {
		if candidate == n {
			p.clicks = append(p.clicks, loc)
			break
		}
	}
	script := n.onClick
	p.mu.Unlock()
	if script != nil {
		p.mu.Lock()
		script(p)
		p.mu.Unlock()
	}
	return nil
}

func (p *fakePage) Upload(_ context.Context, el Element, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.lookup(el)
	if err != nil {
		return err
	}
	n.uploaded = path
	return nil
}

func (p *fakePage) Attr(_ context.Context, el Element, name string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.lookup(el)
	if err != nil {
		return "", false, err
	}
	v, ok := n.attrs[name]
	return v, ok, nil
}

func (p *fakePage) Questions(_ context.Context, loc Locator) ([]Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Question
	for i, q := range p.questions[loc] {
		ref := fmt.Sprintf("question:%s:%d", loc, i)
		p.qrefs[ref] = q
		out = append(out, Question{Text: q.text, Element: Element{Ref: ref}})
	}
	return out, nil
}

func (p *fakePage) NearestInput(_ context.Context, prompt Element) (Element, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.qrefs[prompt.Ref]
	if !ok || q.input == nil {
		return Element{}, false, nil
	}
	ref := prompt.Ref + ":input"
	p.refs[ref] = q.input
	return Element{Ref: ref}, true, nil
}

func (p *fakePage) NearestChoice(_ context.Context, prompt Element, option string) (Element, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.qrefs[prompt.Ref]
	if !ok {
		return Element{}, false, nil
	}
	n, ok := q.choices[option]
	if !ok {
		return Element{}, false, nil
	}
	ref := prompt.Ref + ":choice:" + option
	p.refs[ref] = n
	return Element{Ref: ref}, true, nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fakeLauncher hands out a single scripted page.
type fakeLauncher struct {
	page *fakePage
	err  error
}

func (l *fakeLauncher) NewSession(context.Context) (Session, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.page, nil
}
