package textnorm

import (
	"regexp"
	"strings"
)

var (
	reFence      = regexp.MustCompile("(?m)^[ \\t]*(```|~~~).*$\n?")
	reHeading    = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+`)
	reHeadingEnd = regexp.MustCompile(`(?m)[ \t]+#+[ \t]*$`)
	reRule       = regexp.MustCompile(`(?m)^[ \t]{0,3}([-*_][ \t]*){3,}$`)
	reQuote      = regexp.MustCompile(`(?m)^[ \t]{0,3}>[ \t]?`)
	reBullet     = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	reOrdered    = regexp.MustCompile(`(?m)^([ \t]*)\d+[.)][ \t]+`)
	reImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	reRefDef     = regexp.MustCompile(`(?m)^[ \t]{0,3}\[[^\]]+\]:[ \t]+\S+.*$`)
	reStrong     = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	reEmphasis   = regexp.MustCompile(`(^|[^\w*])[*_]([^*_\n]+)[*_]`)
	reStrike     = regexp.MustCompile(`~~(.+?)~~`)
	reInlineCode = regexp.MustCompile("`([^`]*)`")
)

// StripMarkdown removes Markdown syntax and keeps the readable text. Fenced
// code keeps its content, links keep their label and images their alt text.
func StripMarkdown(src string) string {
	s := strings.ReplaceAll(src, "\r\n", "\n")
	s = reFence.ReplaceAllString(s, "")
	s = reRefDef.ReplaceAllString(s, "")
	s = reRule.ReplaceAllString(s, "")
	s = reHeadingEnd.ReplaceAllString(s, "")
	s = reHeading.ReplaceAllString(s, "")
	s = reQuote.ReplaceAllString(s, "")
	s = reBullet.ReplaceAllString(s, "$1")
	s = reOrdered.ReplaceAllString(s, "$1")
	s = reImage.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = reStrong.ReplaceAllString(s, "$2")
	s = reEmphasis.ReplaceAllString(s, "$1$2")
	s = reStrike.ReplaceAllString(s, "$1")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reManyNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// WrapMarkdown turns plain text into a Markdown document with title as the
// top level heading.
func WrapMarkdown(title, text string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	body := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	return "# " + title + "\n\n" + body + "\n"
}
