package util

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// HasMarkup reports whether s contains an HTML tag or comment. Text that only
// uses the characters, such as "A<B" or "A & B", is not markup.
func HasMarkup(s string) bool {
	open := strings.IndexByte(s, '<')
	if open < 0 || !strings.Contains(s[open:], ">") {
		return false
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return html.UnescapeString(textPolicy.Sanitize(s)) != s
}
