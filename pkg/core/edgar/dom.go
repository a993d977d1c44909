package edgar

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

var whitespaceRun = regexp.MustCompile(`[\s\x{00a0}]+`)

// collapseSpace collapses whitespace runs to one space and trims.
func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// loadBody parses a document body and strips elements that never carry
// filing content (scripts, styles, hidden inline-XBRL headers).
func loadBody(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "edgar: parse body markup")
	}
	doc.Find("script, style, [hidden], [style*='display:none'], [style*='display: none']").Remove()
	return doc, nil
}

// Elements that start a new line when rendered. Text on either side of them
// is kept apart; text across inline elements is joined as written.
var blockTags = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "caption": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tbody": true, "td": true, "tfoot": true, "th": true,
	"thead": true, "tr": true, "ul": true,
}

// writeText appends the text under n to sb. The walk stops at the first
// element for which stop returns true and then reports false.
func writeText(sb *strings.Builder, n *html.Node, stop func(*html.Node) bool) bool {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return true
	case html.CommentNode:
		return true
	case html.ElementNode:
		if stop != nil && stop(n) {
			return false
		}
		if n.Data == "script" || n.Data == "style" {
			return true
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !writeText(sb, c, stop) {
			return false
		}
	}
	if block {
		sb.WriteByte(' ')
	}
	return true
}

// nodeText returns the descendant text of n with whitespace collapsed.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	writeText(&sb, n, nil)
	return collapseSpace(sb.String())
}

// domIndex records document order for every node of a parsed body.
type domIndex struct {
	order     map[*html.Node]int
	tables    []*html.Node
	textNodes []*html.Node
}

func indexDocument(doc *goquery.Document) *domIndex {
	ix := &domIndex{order: make(map[*html.Node]int)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		ix.order[n] = len(ix.order)
		switch {
		case n.Type == html.ElementNode && n.Data == "table":
			ix.tables = append(ix.tables, n)
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) != "":
			ix.textNodes = append(ix.textNodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return ix
}

// nextTableAfter returns the first table that starts after n in document
// order, or nil.
func (ix *domIndex) nextTableAfter(n *html.Node) *html.Node {
	pos, ok := ix.order[n]
	if !ok {
		return nil
	}
	i := sort.Search(len(ix.tables), func(i int) bool {
		return ix.order[ix.tables[i]] > pos
	})
	if i == len(ix.tables) {
		return nil
	}
	return ix.tables[i]
}

func isElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}
