package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/utils"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
)

const (
	allSectionsFile  = "all_sections.json"
	sectionsMarkdown = "sections.md"
	sectionsHTML     = "sections.html"
)

// WriteSections writes all_sections.json, one section_<uuid>.json per
// section, and the sections.md / sections.html report into dir.
func WriteSections(dir, title string, sections []models.SectionRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create %s", dir)
	}
	if sections == nil {
		sections = []models.SectionRecord{}
	}
	if err := WriteJSON(filepath.Join(dir, allSectionsFile), sections); err != nil {
		return err
	}
	for _, s := range sections {
		if s.UUID == "" {
			continue
		}
		if err := WriteJSON(filepath.Join(dir, "section_"+s.UUID+".json"), s); err != nil {
			return err
		}
	}

	md := SectionsMarkdown(title, sections)
	if err := os.WriteFile(filepath.Join(dir, sectionsMarkdown), md, 0o644); err != nil {
		return eris.Wrap(err, "export: write sections markdown")
	}
	body, err := utils.RenderMarkdown(md)
	if err != nil {
		return err
	}
	page := fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(title), body)
	return eris.Wrap(os.WriteFile(filepath.Join(dir, sectionsHTML), []byte(page), 0o644), "export: write sections html")
}

// SectionsMarkdown renders sections as a Markdown outline. Section level 1
// becomes "##" so the report title stays the only top heading.
func SectionsMarkdown(title string, sections []models.SectionRecord) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", utils.EscapeMarkdown(title))
	for _, s := range sections {
		depth := min(max(s.Level, 1)+1, 6)
		fmt.Fprintf(&b, "%s %d. %s\n\n", strings.Repeat("#", depth), s.SectionNumber, utils.EscapeMarkdown(s.Title))
		if s.DocumentType != "" {
			fmt.Fprintf(&b, "*%s*\n\n", utils.EscapeMarkdown(s.DocumentType))
		}
		if content := strings.TrimSpace(s.Content); content != "" {
			b.WriteString(utils.EscapeMarkdown(content))
			b.WriteString("\n\n")
		}
	}
	return b.Bytes()
}

// WriteJSON writes v as indented JSON without HTML escaping.
func WriteJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrapf(err, "export: encode %s", filepath.Base(path))
	}
	return eris.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "export: write %s", path)
}
