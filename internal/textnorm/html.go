package textnorm

import (
	"html"
	"regexp"
	"strings"
)

var reDropBlocks = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<head\b[^>]*>.*?</head\s*>`),
	regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`),
	regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`),
}

var (
	reComments     = regexp.MustCompile(`(?s)<!--.*?-->`)
	reLineBreak    = regexp.MustCompile(`(?i)<br\s*/?>`)
	reBlockClose   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|section|article|pre|table|ul|ol)\s*>`)
	reTags         = regexp.MustCompile(`(?s)<[^>]*>`)
	reHorizontalWS = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	reManyNewlines = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText reduces chapter markup to plain text with a sequence of regular
// expression substitutions. It is not an HTML parser; malformed markup yields
// best-effort text.
func HTMLToText(markup string) string {
	s := strings.ReplaceAll(markup, "\r\n", "\n")
	for _, re := range reDropBlocks {
		s = re.ReplaceAllString(s, "")
	}
	s = reComments.ReplaceAllString(s, "")
	s = reLineBreak.ReplaceAllString(s, "\n")
	s = reBlockClose.ReplaceAllString(s, "\n")
	s = reTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = reHorizontalWS.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = reManyNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
