package config

import (
	"os"
	"strings"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/edgar"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/utils"

	"github.com/rotisserie/eris"
	"go.uber.org/zap/zapcore"
)

// ProfileFile is the Hjson layout of a profiles override file:
//
//	{
//	  # anchors grouped by section
//	  anchors: {
//	    "10-K": { balance_sheet: ["consolidated_balance_sheets"] }
//	  }
//	  text_table_patterns: ["\\S[ \\t]{3,}\\S"]
//	}
type ProfileFile struct {
	Anchors           map[string]map[string][]string `json:"anchors"`
	TextTablePatterns []string                       `json:"text_table_patterns"`
}

// LoadProfiles returns the built-in profiles with the file's form types
// replaced. An empty path returns the defaults.
func LoadProfiles(path string) (edgar.Profiles, error) {
	profiles := edgar.DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profiles, eris.Wrapf(err, "config: read profiles %s", path)
	}
	var file ProfileFile
	if err := utils.DecodeHJSON(data, &file); err != nil {
		return profiles, eris.Wrapf(err, "config: parse profiles %s", path)
	}

	if len(file.Anchors) > 0 {
		profiles = profiles.WithGroupedAnchors(file.Anchors)
	}
	if len(file.TextTablePatterns) > 0 {
		if profiles, err = profiles.WithTextTablePatterns(file.TextTablePatterns); err != nil {
			return edgar.DefaultProfiles(), eris.Wrapf(err, "config: profiles %s", path)
		}
	}
	return profiles, nil
}

// ParseLevel maps a configured log level to zap; empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return lvl, eris.Wrapf(err, "config: log level %q", s)
	}
	return lvl, nil
}
