package application

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptBlockPattern  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	dangerousTagPattern = regexp.MustCompile(`(?i)</?(?:iframe|object|embed|link|style|img|svg)\b[^>]*>`)
	promptTokenPattern  = regexp.MustCompile(`<\|[^|]+\|>`)
	promptArrowPattern  = regexp.MustCompile(`>>>+|<<<+`)
	shellMetaPattern    = regexp.MustCompile("[;&|`]")
	shellCommandPattern = regexp.MustCompile(`(?i)\b(?:rm|sudo|curl|chmod|chown)\b`)
	systemCallPattern   = regexp.MustCompile(`(?i)\b(?:import\s+os|subprocess)\b`)
)

// SanitizeAnswer strips markup, shell metacharacters and prompt-control tokens
// from a respondent's answer and HTML-escapes what remains.
func SanitizeAnswer(input string) string {
	clean := scriptBlockPattern.ReplaceAllString(input, "")
	clean = dangerousTagPattern.ReplaceAllString(clean, "")
	clean = promptTokenPattern.ReplaceAllString(clean, "")
	clean = promptArrowPattern.ReplaceAllString(clean, "")
	clean = shellMetaPattern.ReplaceAllString(clean, "")
	clean = shellCommandPattern.ReplaceAllString(clean, "")
	clean = systemCallPattern.ReplaceAllString(clean, "")
	return html.EscapeString(strings.TrimSpace(clean))
}
