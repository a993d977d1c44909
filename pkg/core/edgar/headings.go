package edgar

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// HeadingKind tells real heading tags apart from headings inferred from styling.
type HeadingKind int

const (
	StandardHeading HeadingKind = iota
	PseudoHeading
)

func (k HeadingKind) String() string {
	if k == PseudoHeading {
		return "pseudo"
	}
	return "standard"
}

const (
	// Bold runs inside a paragraph shorter than this are pseudo headings.
	shortParagraphRunes = 100
	// Level given to bold runs that stand in for headings.
	boldHeadingLevel = 3
)

var standardLevels = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4}

var (
	fontSizePattern = regexp.MustCompile(`font-size:\s*(\d+)(?:\.\d*)?pt`)
	boldStyle       = regexp.MustCompile(`font-weight:\s*(?:bold|[7-9]00)`)
)

// Heading is a classified heading element. Anchor is the node whose following
// siblings hold the section body.
type Heading struct {
	Kind   HeadingKind
	Level  int
	Title  string
	Anchor *html.Node
}

// classifyHeading decides whether n opens a section:
//   - h1..h4 are standard headings at their own level;
//   - a <p> styled bold at 14pt or more is a level 2 pseudo heading, 12pt or more level 3;
//   - <b>/<strong> inside a paragraph shorter than 100 characters is a level 3 pseudo heading.
func classifyHeading(n *html.Node) (Heading, bool) {
	if n == nil || n.Type != html.ElementNode {
		return Heading{}, false
	}

	if level, ok := standardLevels[n.Data]; ok {
		title := nodeText(n)
		if title == "" {
			return Heading{}, false
		}
		return Heading{Kind: StandardHeading, Level: level, Title: title, Anchor: n}, true
	}

	switch n.Data {
	case "p":
		level, ok := styledHeadingLevel(attr(n, "style"))
		if !ok {
			return Heading{}, false
		}
		title := nodeText(n)
		if title == "" || utf8.RuneCountInString(title) >= shortParagraphRunes {
			return Heading{}, false
		}
		return Heading{Kind: PseudoHeading, Level: level, Title: title, Anchor: n}, true

	case "b", "strong":
		parent := n.Parent
		if !isElement(parent, "p") {
			return Heading{}, false
		}
		title := nodeText(n)
		parentText := nodeText(parent)
		if title == "" || utf8.RuneCountInString(parentText) >= shortParagraphRunes {
			return Heading{}, false
		}
		// A bold run that is the whole paragraph stands for the paragraph.
		anchor := n
		if parentText == title {
			anchor = parent
		}
		return Heading{Kind: PseudoHeading, Level: boldHeadingLevel, Title: title, Anchor: anchor}, true
	}
	return Heading{}, false
}

func styledHeadingLevel(style string) (int, bool) {
	style = strings.ToLower(style)
	if !boldStyle.MatchString(style) {
		return 0, false
	}
	m := fontSizePattern.FindStringSubmatch(style)
	if m == nil {
		return 0, false
	}
	size, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch {
	case size >= 14:
		return 2, true
	case size >= 12:
		return 3, true
	}
	return 0, false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isStandardHeading(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	_, ok := standardLevels[n.Data]
	return ok
}
