package browser

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/jobswipe/internal/apply"
)

const (
	upperAlpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlpha = "abcdefghijklmnopqrstuvwxyz"
)

const fieldNode = `*[self::textarea or self::select or (self::input and not(@type='hidden' or @type='submit' or @type='button'))]`

// followingControl reaches the first form control of any kind after a prompt.
const followingControl = `/following::*[self::textarea or self::select or (self::input and not(@type='hidden' or @type='file' or @type='submit' or @type='button'))][1]`

// nearestInput keeps the prompt's first control only when it takes text, so
// a yes/no prompt never resolves to the next question's field.
func nearestInput(prompt string) string {
	return "(" + prompt + followingControl + `)[not(self::input and (@type='radio' or @type='checkbox'))]`
}

// Compile turns a non-CSS locator into an XPath expression.
func Compile(loc apply.Locator) (string, error) {
	v := loc.Value
	switch loc.Kind {
	case apply.ByIdentifier:
		lit := literal(v)
		return fmt.Sprintf(`//*[@name=%s or @id=%s or @data-automation-id=%s]`, lit, lit, lit), nil
	case apply.ByPlaceholder:
		return fmt.Sprintf(`//*[(self::input or self::textarea) and contains(%s, %s)]`,
			lower("@placeholder"), literal(strings.ToLower(v))), nil
	case apply.ByLabel:
		return fmt.Sprintf(`//label[contains(%s, %s)]/following::%s[1]`,
			lower("normalize-space(.)"), literal(strings.ToLower(v)), fieldNode), nil
	case apply.ByText:
		needle := literal(strings.ToLower(v))
		text := lower("normalize-space(.)")
		// The deepest element containing the text, or a button-like input.
		return fmt.Sprintf(`//body//*[not(self::script or self::style)][contains(%s, %s)][not(*[contains(%s, %s)])]`+
			` | //input[(@type='submit' or @type='button') and contains(%s, %s)]`,
			text, needle, text, needle, lower("@value"), needle), nil
	case apply.ByXPath:
		return v, nil
	default:
		return "", fmt.Errorf("locator kind %q has no xpath form", loc.Kind)
	}
}

// followingChoice reaches the first radio, checkbox or label after a prompt
// that mentions option.
func followingChoice(option string) string {
	needle := literal(strings.ToLower(option))
	return fmt.Sprintf(`/following::*[(self::input and (@type='radio' or @type='checkbox') and contains(%s, %s)) or (self::label and contains(%s, %s))][1]`,
		lower("@value"), needle, lower("normalize-space(.)"), needle)
}

func first(query string) string {
	return nth(query, 1)
}

func nth(query string, i int) string {
	return fmt.Sprintf("(%s)[%d]", query, i)
}

func lower(expr string) string {
	return fmt.Sprintf("translate(%s, '%s', '%s')", expr, upperAlpha, lowerAlpha)
}

// literal quotes s as an XPath 1.0 string literal.
func literal(s string) string {
	switch {
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+part+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
