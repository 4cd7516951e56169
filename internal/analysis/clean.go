package analysis

import (
	"regexp"
	"strings"
)

// Reddit markdown and entity cleanup applied before prompting the model.
var (
	boldRe        = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe      = regexp.MustCompile(`\*(.*?)\*`)
	strikeRe      = regexp.MustCompile(`~~(.*?)~~`)
	superscriptRe = regexp.MustCompile(`\^(\w+)`)
	quoteLineRe   = regexp.MustCompile(`(?m)^(?:&gt;|>).*\n?`)
	userRe        = regexp.MustCompile(`/u/\w+`)
	subredditRe   = regexp.MustCompile(`/r/\w+`)
	urlRe         = regexp.MustCompile(`https?://\S+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// CleanText strips Reddit markdown from a comment body and replaces
// mentions and links with neutral placeholders so they do not skew the
// model's sentiment read.
func CleanText(text string) string {
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = strikeRe.ReplaceAllString(text, "$1")
	text = superscriptRe.ReplaceAllString(text, "$1")
	text = quoteLineRe.ReplaceAllString(text, "")
	text = userRe.ReplaceAllString(text, "[USER]")
	text = subredditRe.ReplaceAllString(text, "[SUBREDDIT]")
	text = urlRe.ReplaceAllString(text, "[LINK]")

	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
