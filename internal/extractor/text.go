package extractor

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sjsage522/lotteryworker/internal/lottery"
)

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// SelectionText returns the visible text of a selection with every text node
// separated by a single space. goquery's Text() concatenates adjacent nodes,
// which glues ball numbers such as <li>7</li><li>14</li> into "714".
func SelectionText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		*parts = append(*parts, strings.Fields(n.Data)...)
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// ContentText flattens raw content to whitespace-normalized text
func ContentText(content []byte, format lottery.ContentFormat) (string, error) {
	if format != lottery.FormatHTML {
		return strings.Join(strings.Fields(string(content)), " "), nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	return SelectionText(doc.Selection), nil
}

func isTokenSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == ',' || r == ';' || r == '|'
}

// NumberTokens returns the standalone 1-2 digit tokens of text in order.
// Years, times ("7:30"), slashed dates, prices and words never qualify.
func NumberTokens(text string) []string {
	var tokens []string
	for _, field := range strings.FieldsFunc(text, isTokenSeparator) {
		field = strings.Trim(field, ".()[]-")
		if IsNumberToken(field) {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// IsNumberToken reports whether s is exactly one or two ASCII digits
func IsNumberToken(s string) bool {
	if len(s) == 0 || len(s) > 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
