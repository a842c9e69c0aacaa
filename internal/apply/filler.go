package apply

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/failure"
)

// lookupOrder is the fallback order for form fields.
var lookupOrder = []LocatorKind{ByIdentifier, ByPlaceholder, ByLabel}

// Field is one form value to fill.
type Field struct {
	// Name identifies the field in logs and error records.
	Name string
	// Keys are tried in order within each lookup strategy.
	Keys     []string
	Value    string
	Required bool
}

// Filler locates and fills form fields without overwriting existing values.
type Filler struct {
	page   Page
	logger *zap.Logger
}

// NewFiller binds a filler to a page.
func NewFiller(page Page, logger *zap.Logger) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{page: page, logger: logger}
}

// Locate resolves the first key that matches, trying identifiers first, then
// placeholders, then labels.
func (f *Filler) Locate(ctx context.Context, keys ...string) (Element, bool, error) {
	for _, kind := range lookupOrder {
		for _, key := range keys {
			if key == "" {
				continue
			}
			el, ok, err := f.page.Find(ctx, Locator{Kind: kind, Value: key})
			if err != nil {
				return Element{}, false, fmt.Errorf("find %s %q: %w", kind, key, err)
			}
			if ok {
				return el, true, nil
			}
		}
	}
	return Element{}, false, nil
}

// Fill types field.Value into the field unless it already holds a value. A
// missing optional field is skipped; a missing required field is an
// ElementMissing failure. It reports whether the field was found.
func (f *Filler) Fill(ctx context.Context, field Field) (bool, error) {
	keys := field.Keys
	if len(keys) == 0 {
		keys = []string{field.Name}
	}
	el, ok, err := f.Locate(ctx, keys...)
	if err != nil {
		return false, err
	}
	if !ok {
		if field.Required {
			return false, failure.ElementMissing(field.Name)
		}
		f.logger.Debug("field not present", zap.String("field", field.Name))
		return false, nil
	}
	if field.Value == "" {
		return true, nil
	}
	current, err := f.page.Value(ctx, el)
	if err != nil {
		return true, fmt.Errorf("read %s: %w", field.Name, err)
	}
	if strings.TrimSpace(current) != "" {
		return true, nil
	}
	if err := f.page.Type(ctx, el, field.Value); err != nil {
		return true, fmt.Errorf("type %s: %w", field.Name, err)
	}
	return true, nil
}

// FillAll fills fields in order and stops at the first error.
func (f *Filler) FillAll(ctx context.Context, fields ...Field) error {
	for _, field := range fields {
		if _, err := f.Fill(ctx, field); err != nil {
			return err
		}
	}
	return nil
}

// Rule maps a lower-case question fragment to a canned answer. Choice rules
// prefer clicking an option over typing.
type Rule struct {
	Pattern string
	Answer  string
	Choice  bool
}

// DeclineAnswer is used for voluntary self-identification questions.
const DeclineAnswer = "I don't wish to answer"

// CommonRules answers eligibility questions that appear on most portals.
var CommonRules = []Rule{
	{Pattern: "authorized to work", Answer: "Yes"},
	{Pattern: "work authorization", Answer: "Authorized"},
	{Pattern: "visa sponsorship", Answer: "No"},
	{Pattern: "legally eligible", Answer: "Yes"},
	{Pattern: "require sponsorship", Answer: "No"},
	{Pattern: "work eligibility", Answer: "Authorized"},
}

// WorkdayRules are checked before CommonRules on Workday forms, where
// eligibility prompts are radio groups.
var WorkdayRules = []Rule{
	{Pattern: "sponsorship", Answer: "No", Choice: true},
	{Pattern: "authorized to work", Answer: "Yes", Choice: true},
	{Pattern: "veteran", Answer: DeclineAnswer, Choice: true},
	{Pattern: "disability", Answer: DeclineAnswer, Choice: true},
	{Pattern: "available to work", Answer: "Yes", Choice: true},
}

// Answerer matches form questions against rule tables and the candidate's
// own answers.
type Answerer struct {
	page   Page
	rules  []Rule
	logger *zap.Logger
}

// NewAnswerer builds an answerer. Rules are matched in order; candidate
// answers come last, longest pattern first.
func NewAnswerer(page Page, logger *zap.Logger, rules []Rule, answers map[string]string) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	all := make([]Rule, 0, len(rules)+len(answers))
	all = append(all, rules...)
	all = append(all, candidateRules(answers)...)
	return &Answerer{page: page, rules: all, logger: logger}
}

func candidateRules(answers map[string]string) []Rule {
	out := make([]Rule, 0, len(answers))
	for pattern, answer := range answers {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" || strings.TrimSpace(answer) == "" {
			continue
		}
		out = append(out, Rule{Pattern: pattern, Answer: answer})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Pattern) != len(out[j].Pattern) {
			return len(out[i].Pattern) > len(out[j].Pattern)
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

// Match returns the first rule whose pattern occurs in text.
func (a *Answerer) Match(text string) (Rule, bool) {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	if text == "" {
		return Rule{}, false
	}
	for _, rule := range a.rules {
		if strings.Contains(text, rule.Pattern) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Answer fills or clicks the control nearest to q. An unmatched question, or
// one with no usable control, is left alone and reported as false.
func (a *Answerer) Answer(ctx context.Context, q Question) (bool, error) {
	rule, ok := a.Match(q.Text)
	if !ok {
		return false, nil
	}
	steps := []func(context.Context, Question, string) (bool, error){a.typeInto, a.choose}
	if rule.Choice {
		steps[0], steps[1] = steps[1], steps[0]
	}
	for _, step := range steps {
		done, err := step(ctx, q, rule.Answer)
		if err != nil || done {
			return done, err
		}
	}
	a.logger.Debug("question matched but no control found", zap.String("question", q.Text))
	return false, nil
}

// AnswerAll answers every question matched by loc and returns how many were
// answered.
func (a *Answerer) AnswerAll(ctx context.Context, loc Locator) (int, error) {
	questions, err := a.page.Questions(ctx, loc)
	if err != nil {
		return 0, fmt.Errorf("list questions: %w", err)
	}
	answered := 0
	for _, q := range questions {
		ok, err := a.Answer(ctx, q)
		if err != nil {
			return answered, err
		}
		if ok {
			answered++
		}
	}
	return answered, nil
}

func (a *Answerer) typeInto(ctx context.Context, q Question, answer string) (bool, error) {
	el, ok, err := a.page.NearestInput(ctx, q.Element)
	if err != nil || !ok {
		return false, err
	}
	current, err := a.page.Value(ctx, el)
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}
	if strings.TrimSpace(current) != "" {
		return true, nil
	}
	if err := a.page.Type(ctx, el, answer); err != nil {
		return false, fmt.Errorf("type answer: %w", err)
	}
	return true, nil
}

func (a *Answerer) choose(ctx context.Context, q Question, answer string) (bool, error) {
	el, ok, err := a.page.NearestChoice(ctx, q.Element, choiceOption(answer))
	if err != nil || !ok {
		return false, err
	}
	if err := a.page.Click(ctx, el); err != nil {
		return false, fmt.Errorf("click answer: %w", err)
	}
	return true, nil
}

// choiceOption reduces an answer to the text expected on a yes/no control.
func choiceOption(answer string) string {
	lower := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case lower == "yes" || strings.HasPrefix(lower, "yes "), strings.HasPrefix(lower, "yes,"):
		return "yes"
	case lower == "no" || strings.HasPrefix(lower, "no "), strings.HasPrefix(lower, "no,"):
		return "no"
	default:
		return lower
	}
}
