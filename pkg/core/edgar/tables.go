package edgar

import (
	"fmt"
	"unicode/utf8"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// TableExtractor pulls tables out of document bodies.
//
// Markup tables are found by three tiers, each tried only when the previous
// one found nothing:
//  1. anchors listed in the form type's profile,
//  2. the first table following a financial statement keyword,
//  3. every table with at least two rows and two columns.
type TableExtractor struct {
	profiles Profiles
	log      *zap.Logger
}

// NewTableExtractor creates an extractor over a fixed profile registry.
func NewTableExtractor(profiles Profiles, log *zap.Logger) *TableExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &TableExtractor{profiles: profiles, log: log}
}

// tableCollector keeps found tables in order and drops repeats of the same element.
type tableCollector struct {
	doc  *goquery.Document
	seen map[*html.Node]bool
	out  []models.TableRecord
}

func (c *tableCollector) add(label string, n *html.Node, keep func([][]string) bool) {
	if n == nil || c.seen[n] {
		return
	}
	rows := parseTable(c.doc.FindNodes(n))
	if rows == nil || !keep(rows) {
		return
	}
	c.seen[n] = true
	c.out = append(c.out, models.TableRecord{Label: label, Rows: rows})
}

func multiRow(rows [][]string) bool { return len(rows) > 1 }

func multiRowMultiColumn(rows [][]string) bool { return len(rows) > 1 && len(rows[0]) > 1 }

// ExtractTables returns the labeled tables of a markup body.
func (e *TableExtractor) ExtractTables(body, filingType string) []models.TableRecord {
	doc, err := loadBody(body)
	if err != nil {
		e.log.Warn("edgar: tables skipped", zap.Error(err))
		return nil
	}
	ix := indexDocument(doc)
	if len(ix.tables) == 0 {
		return nil
	}

	if tables := e.byAnchor(doc, ix, filingType); len(tables) > 0 {
		e.log.Debug("edgar: tables found by anchor", zap.String("type", filingType), zap.Int("count", len(tables)))
		return tables
	}
	if tables := e.byKeyword(doc, ix); len(tables) > 0 {
		e.log.Debug("edgar: tables found by keyword", zap.Int("count", len(tables)))
		return tables
	}
	tables := e.exhaustive(doc, ix)
	e.log.Debug("edgar: tables found by scan", zap.Int("count", len(tables)))
	return tables
}

func (e *TableExtractor) byAnchor(doc *goquery.Document, ix *domIndex, filingType string) []models.TableRecord {
	anchors, ok := e.profiles.Anchors(filingType)
	if !ok {
		return nil
	}
	c := &tableCollector{doc: doc, seen: make(map[*html.Node]bool)}
	for _, id := range anchors {
		doc.Find(fmt.Sprintf(`[id=%q], a[name=%q]`, id, id)).Each(func(_ int, anchor *goquery.Selection) {
			if owner := anchor.Closest("table"); owner.Length() > 0 {
				c.add(id, owner.Get(0), multiRow)
				return
			}
			c.add(id, ix.nextTableAfter(anchor.Get(0)), multiRow)
		})
	}
	return c.out
}

func (e *TableExtractor) byKeyword(doc *goquery.Document, ix *domIndex) []models.TableRecord {
	c := &tableCollector{doc: doc, seen: make(map[*html.Node]bool)}
	for _, re := range e.profiles.keywords {
		for _, tn := range ix.textNodes {
			if !re.MatchString(tn.Data) {
				continue
			}
			from := tn
			if tn.Parent != nil {
				from = tn.Parent
			}
			c.add(collapseSpace(tn.Data), ix.nextTableAfter(from), multiRow)
		}
	}
	return c.out
}

var titleTags = []string{"h1", "h2", "h3", "h4", "p", "div", "strong", "b"}

func (e *TableExtractor) exhaustive(doc *goquery.Document, ix *domIndex) []models.TableRecord {
	c := &tableCollector{doc: doc, seen: make(map[*html.Node]bool)}
	for i, n := range ix.tables {
		c.add(tableTitle(doc.FindNodes(n), i+1), n, multiRowMultiColumn)
	}
	return c.out
}

// tableTitle names a table from its caption, one of the three elements before
// it, or its position.
func tableTitle(table *goquery.Selection, position int) string {
	if caption := table.ChildrenFiltered("caption").First(); caption.Length() > 0 {
		if text := nodeText(caption.Get(0)); text != "" {
			return text
		}
	}
	prev := table.Prev()
	for i := 0; i < 3 && prev.Length() > 0; i++ {
		if isElement(prev.Get(0), titleTags...) {
			text := nodeText(prev.Get(0))
			if n := utf8.RuneCountInString(text); n > 5 && n <= 200 {
				return text
			}
		}
		prev = prev.Prev()
	}
	return fmt.Sprintf("table_%d", position)
}
