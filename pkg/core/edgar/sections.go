package edgar

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Title of the section holding paragraphs before the first uppercase heading.
const leadSectionTitle = "Document Content"

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[\w+ Top\]`),
	regexp.MustCompile(`\[Table of Contents\]`),
	regexp.MustCompile(`(?s)\[Data_Table_start\].*?\[Data_Table_end\]`),
	regexp.MustCompile(`Click here to view`),
}

// cleanContent collapses whitespace and strips navigation noise.
func cleanContent(s string) string {
	s = collapseSpace(s)
	for _, re := range noisePatterns {
		s = re.ReplaceAllString(s, "")
	}
	return collapseSpace(s)
}

// SectionExtractor rebuilds the heading hierarchy of a document body.
type SectionExtractor struct {
	newID func() string
	log   *zap.Logger
}

// NewSectionExtractor creates an extractor that assigns random UUIDs.
func NewSectionExtractor(log *zap.Logger) *SectionExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &SectionExtractor{newID: uuid.NewString, log: log}
}

// sectionEmitter numbers sections 1..n in emission order and drops empty ones.
type sectionEmitter struct {
	cik, ticker string
	newID       func() string
	out         []models.SectionRecord
}

func (em *sectionEmitter) emit(title string, level int, parent, content string) {
	content = cleanContent(content)
	if content == "" {
		return
	}
	em.out = append(em.out, models.SectionRecord{
		UUID:          em.newID(),
		SectionNumber: len(em.out) + 1,
		Title:         title,
		Level:         level,
		ParentTitle:   parent,
		Content:       content,
		CIK:           em.cik,
		Ticker:        em.ticker,
	})
}

// ExtractSections returns the sections of a body. Headings are tried first,
// then PART/Item markers, then short uppercase paragraphs.
func (e *SectionExtractor) ExtractSections(body, cik, ticker string) []models.SectionRecord {
	doc, err := loadBody(body)
	if err != nil {
		e.log.Warn("edgar: sections skipped", zap.Error(err))
		return nil
	}

	tiers := []struct {
		name string
		run  func(*goquery.Document, *sectionEmitter)
	}{
		{"headings", e.byHeadings},
		{"item markers", e.byItemMarkers},
		{"uppercase paragraphs", e.byUppercaseParagraphs},
	}
	for _, tier := range tiers {
		em := &sectionEmitter{cik: cik, ticker: ticker, newID: e.newID}
		tier.run(doc, em)
		if len(em.out) > 0 {
			e.log.Debug("edgar: sections found", zap.String("tier", tier.name), zap.Int("count", len(em.out)))
			return em.out
		}
	}
	return nil
}

type stackEntry struct {
	level int
	title string
}

func (e *SectionExtractor) byHeadings(doc *goquery.Document, em *sectionEmitter) {
	var headings []Heading
	anchors := make(map[*html.Node]bool)

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		h, ok := classifyHeading(s.Get(0))
		if !ok {
			return
		}
		h.Anchor = liftAnchor(h.Anchor, h.Title)
		if anchors[h.Anchor] {
			return
		}
		if h.Kind == PseudoHeading && insideAnchor(h.Anchor, anchors) {
			return
		}
		anchors[h.Anchor] = true
		headings = append(headings, h)
	})

	var stack []stackEntry
	for _, h := range headings {
		for len(stack) > 0 && stack[len(stack)-1].level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		parent := ""
		if len(stack) > 0 {
			parent = stack[len(stack)-1].title
		}
		stack = append(stack, stackEntry{level: h.Level, title: h.Title})
		em.emit(h.Title, h.Level, parent, headingContent(h.Anchor))
	}
}

// liftAnchor climbs out of wrappers that contain nothing but the heading.
func liftAnchor(n *html.Node, title string) *html.Node {
	for n.Parent != nil && !isElement(n.Parent, "body", "html") && nodeText(n.Parent) == title {
		n = n.Parent
	}
	return n
}

func insideAnchor(n *html.Node, anchors map[*html.Node]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if anchors[p] {
			return true
		}
	}
	return false
}

// headingContent collects the text after anchor up to the next h1..h4,
// including text inside sibling wrappers that precede a nested heading.
// Pseudo headings do not end the content.
func headingContent(anchor *html.Node) string {
	var sb strings.Builder
	for s := anchor.NextSibling; s != nil; s = s.NextSibling {
		if !writeText(&sb, s, isStandardHeading) {
			break
		}
	}
	return sb.String()
}

func (e *SectionExtractor) byItemMarkers(doc *goquery.Document, em *sectionEmitter) {
	ix := indexDocument(doc)
	part := ""
	for _, tn := range ix.textNodes {
		m := markerPattern.FindStringSubmatch(collapseSpace(tn.Data))
		if m == nil {
			continue
		}
		marker := m[1]
		title := markerTitle(tn, marker)

		level, parent := 2, part
		if isPartMarker(marker) {
			level, parent = 1, ""
			part = title
		}

		container := tn.Parent
		if container == nil {
			continue
		}
		em.emit(title, level, parent, markerContent(container))
	}
}

func (e *SectionExtractor) byUppercaseParagraphs(doc *goquery.Document, em *sectionEmitter) {
	title := leadSectionTitle
	var content []string

	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := nodeText(p.Get(0))
		if text == "" {
			return
		}
		if utf8.RuneCountInString(text) < shortParagraphRunes && isUpperText(text) {
			if len(content) > 0 {
				em.emit(title, 1, "", strings.Join(content, " "))
				content = nil
			}
			title = text
			return
		}
		content = append(content, text)
	})
	if len(content) > 0 {
		em.emit(title, 1, "", strings.Join(content, " "))
	}
}

// isUpperText reports whether s has letters and none of them are lowercase.
func isUpperText(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
