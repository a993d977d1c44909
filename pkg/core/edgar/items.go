package edgar

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// =============================================================================
// PART / ITEM MARKERS
// Based on the Form 10-K and 10-Q item structure.
// =============================================================================

// ItemDefinitions are the conventional item numbers with their usual captions.
var ItemDefinitions = []struct {
	Number string
	Title  string
}{
	{"1", "Business"},
	{"1A", "Risk Factors"},
	{"1B", "Unresolved Staff Comments"},
	{"1C", "Cybersecurity"},
	{"2", "Properties"},
	{"3", "Legal Proceedings"},
	{"4", "Mine Safety Disclosures"},
	{"5", "Market for Registrant's Common Equity"},
	{"6", "Selected Financial Data"},
	{"7", "Management's Discussion and Analysis"},
	{"7A", "Quantitative and Qualitative Disclosures About Market Risk"},
	{"8", "Financial Statements and Supplementary Data"},
	{"9", "Changes in and Disagreements with Accountants"},
	{"9A", "Controls and Procedures"},
	{"9B", "Other Information"},
	{"10", "Directors, Executive Officers and Corporate Governance"},
	{"11", "Executive Compensation"},
	{"12", "Security Ownership"},
	{"13", "Certain Relationships and Related Transactions"},
	{"14", "Principal Accountant Fees and Services"},
	{"15", "Exhibits and Financial Statement Schedules"},
}

var (
	markerPattern = buildMarkerPattern()
	itemCaptions  = buildItemCaptions()
)

func buildMarkerPattern() *regexp.Regexp {
	numbers := make([]string, 0, len(ItemDefinitions))
	for _, def := range ItemDefinitions {
		numbers = append(numbers, regexp.QuoteMeta(def.Number))
	}
	// Longer numbers first so "1A" is never read as "1".
	return regexp.MustCompile(`\b(Item (?:` + strings.Join(sortByLengthDesc(numbers), "|") + `)\.|PART (?:IV|III|II|I))(?:\s|$)`)
}

func buildItemCaptions() map[string]string {
	m := make(map[string]string, len(ItemDefinitions))
	for _, def := range ItemDefinitions {
		m["Item "+def.Number+"."] = def.Title
	}
	return m
}

func sortByLengthDesc(in []string) []string {
	out := append([]string(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// markerTitle picks the short text around a marker: the text node itself, its
// parent's text, or the marker with its usual caption.
func markerTitle(tn *html.Node, marker string) string {
	if t := collapseSpace(tn.Data); utf8.RuneCountInString(t) < shortParagraphRunes {
		return t
	}
	if tn.Parent != nil {
		if t := nodeText(tn.Parent); utf8.RuneCountInString(t) < shortParagraphRunes {
			return t
		}
	}
	if caption, ok := itemCaptions[marker]; ok {
		return marker + " " + caption
	}
	return marker
}

func isPartMarker(marker string) bool {
	return strings.HasPrefix(marker, "PART")
}

// markerContent collects the text of container's following siblings up to the
// next sibling that carries a marker.
func markerContent(container *html.Node) string {
	var parts []string
	for s := container.NextSibling; s != nil; s = s.NextSibling {
		text := nodeText(s)
		if markerPattern.MatchString(text) {
			break
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
