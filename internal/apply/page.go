package apply

import (
	"context"
	"fmt"
)

// LocatorKind selects how a Locator is matched against the page.
type LocatorKind string

// Locator kinds, in the order field lookups fall back through them.
const (
	// ByIdentifier matches the name, id or data-automation-id attribute.
	ByIdentifier LocatorKind = "identifier"
	// ByPlaceholder matches placeholder text, case-insensitively.
	ByPlaceholder LocatorKind = "placeholder"
	// ByLabel matches a label's text and resolves to the input it describes.
	ByLabel LocatorKind = "label"
	// ByCSS is a raw CSS selector.
	ByCSS LocatorKind = "css"
	// ByText matches a button, link or heading containing the text,
	// case-insensitively.
	ByText LocatorKind = "text"
	// ByXPath is a raw XPath expression.
	ByXPath LocatorKind = "xpath"
)

// Locator describes an element without resolving it.
type Locator struct {
	Kind  LocatorKind
	Value string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%q", l.Kind, l.Value)
}

// Identifier, Placeholder, Label, CSS, Text and XPath build locators.
func Identifier(v string) Locator { return Locator{Kind: ByIdentifier, Value: v} }
func Placeholder(v string) Locator { return Locator{Kind: ByPlaceholder, Value: v} }
func Label(v string) Locator { return Locator{Kind: ByLabel, Value: v} }
func CSS(v string) Locator { return Locator{Kind: ByCSS, Value: v} }
func Text(v string) Locator { return Locator{Kind: ByText, Value: v} }
func XPath(v string) Locator { return Locator{Kind: ByXPath, Value: v} }

// Element is a resolved handle on one node. Ref is meaningful only to the
// Page that produced it.
type Element struct {
	Ref string
}

// Question is a prompt found on a form.
type Question struct {
	Text    string
	Element Element
}

// Page is one browser tab. Lookups report absence as (Element{}, false, nil);
// errors are reserved for browser and transport faults.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Find(ctx context.Context, loc Locator) (Element, bool, error)
	Value(ctx context.Context, el Element) (string, error)
	Type(ctx context.Context, el Element, text string) error
	Click(ctx context.Context, el Element) error
	Upload(ctx context.Context, el Element, path string) error
	Attr(ctx context.Context, el Element, name string) (string, bool, error)
	// Questions lists prompts matched by loc, in document order.
	Questions(ctx context.Context, loc Locator) ([]Question, error)
	// NearestInput returns the first form control after a prompt when it
	// takes text. A radio or checkbox in that position reports false so the
	// caller answers through NearestChoice.
	NearestInput(ctx context.Context, prompt Element) (Element, bool, error)
	// NearestChoice finds the first radio, checkbox or option label after a
	// prompt whose value or text contains option.
	NearestChoice(ctx context.Context, prompt Element, option string) (Element, bool, error)
	HTML(ctx context.Context) (string, error)
}

// Session is an exclusive browser tab. Close releases it; the session is not
// reusable afterwards.
type Session interface {
	Page
	Close() error
}

// Launcher opens browser sessions.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
}
