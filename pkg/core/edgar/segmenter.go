package edgar

import (
	"regexp"
	"strings"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"
)

// UnknownType is the type tag of a block without a <TYPE> line.
const UnknownType = "UNKNOWN"

var (
	documentPattern = regexp.MustCompile(`(?s)<DOCUMENT>(.*?)</DOCUMENT>`)
	typePattern     = regexp.MustCompile(`<TYPE>([^\r\n]*)`)
	textPattern     = regexp.MustCompile(`(?s)<TEXT>(.*?)(?:</TEXT>|\z)`)

	// Tried in order; the first match wins.
	issuerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<CIK>\s*(\d+)\s*</CIK>`),
		regexp.MustCompile(`CENTRAL INDEX KEY:\s+(\d+)`),
		regexp.MustCompile(`CIK=(\d+)`),
		regexp.MustCompile(`CIK:\s?(\d+)`),
	}
)

// SplitDocuments returns the inner text of every <DOCUMENT> region. A bundle
// without regions is returned whole as a single block.
func SplitDocuments(bundle string) []string {
	matches := documentPattern.FindAllStringSubmatch(bundle, -1)
	if len(matches) == 0 {
		return []string{bundle}
	}
	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = m[1]
	}
	return blocks
}

// ExtractBlockInfo reads the type tag, body and issuer id of one block.
//
// The body is the <TEXT> region; an unclosed <TEXT> runs to the end of the
// block, and a block without <TEXT> is its own body.
func ExtractBlockInfo(raw string) models.DocumentBlock {
	block := models.DocumentBlock{TypeTag: UnknownType, Body: raw}

	if m := typePattern.FindStringSubmatch(raw); m != nil {
		if tag := strings.TrimSpace(m[1]); tag != "" {
			block.TypeTag = tag
		}
	}
	if m := textPattern.FindStringSubmatch(raw); m != nil {
		block.Body = m[1]
	}
	block.IssuerID = findIssuerID(raw)
	return block
}

// Segment splits a bundle and extracts every block.
func Segment(bundle string) []models.DocumentBlock {
	raw := SplitDocuments(bundle)
	blocks := make([]models.DocumentBlock, len(raw))
	for i, r := range raw {
		blocks[i] = ExtractBlockInfo(r)
	}
	return blocks
}

func findIssuerID(text string) string {
	for _, re := range issuerPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}
