// Package reader loads filing bundles from disk and decodes them to text.
//
// Decoding never fails: the detected charset is tried first, then windows-1252,
// then UTF-8. When none of them decodes cleanly the bytes are decoded as
// windows-1252 with undefined bytes replaced by U+FFFD and the result is
// flagged as degraded.
package reader

import (
	"bytes"
	"os"
	"unicode/utf8"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// SampleSize is the number of leading bytes handed to charset detection.
	SampleSize = 1 << 20

	LegacyEncoding    = "windows-1252"
	UniversalEncoding = "utf-8"

	replacementSuffix = " (with replacement)"
)

// cp1252 leaves these five bytes unassigned.
var cp1252Undefined = [256]bool{0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true}

var utf8Replacement = []byte("\uFFFD")

// Detector guesses the charset of a byte sample with a 0-100 confidence.
type Detector interface {
	Detect(sample []byte) (charset string, confidence int, err error)
}

// ChardetDetector adapts saintfish/chardet to Detector.
type ChardetDetector struct {
	detector *chardet.Detector
}

// NewChardetDetector returns a statistical text detector.
func NewChardetDetector() *ChardetDetector {
	return &ChardetDetector{detector: chardet.NewTextDetector()}
}

func (c *ChardetDetector) Detect(sample []byte) (string, int, error) {
	res, err := c.detector.DetectBest(sample)
	if err != nil {
		return "", 0, err
	}
	return res.Charset, res.Confidence, nil
}

// Result is decoded bundle text plus how it was decoded.
type Result struct {
	Text       string
	Encoding   string
	Confidence int
	Degraded   bool
	Size       int64
}

// Reader decodes filing bundles.
type Reader struct {
	detector Detector
	log      *zap.Logger
}

// New creates a Reader backed by chardet.
func New(log *zap.Logger) *Reader {
	return NewWithDetector(NewChardetDetector(), log)
}

// NewWithDetector creates a Reader with a custom charset detector.
func NewWithDetector(d Detector, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{detector: d, log: log}
}

// ReadFile reads and decodes the bundle at path. Only I/O problems are errors.
func (r *Reader) ReadFile(path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(models.ErrInvalidInput, "reader: %s does not exist", path)
		}
		return nil, eris.Wrapf(err, "reader: read %s", path)
	}

	res := r.Decode(raw)
	if res.Degraded {
		r.log.Warn("reader: no encoding decoded cleanly",
			zap.String("path", path),
			zap.String("encoding", res.Encoding))
	}
	return res, nil
}

// Decode turns raw bytes into text. It always returns a result.
func (r *Reader) Decode(raw []byte) *Result {
	sample := raw
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}

	var candidates []string
	charset, confidence, err := r.detector.Detect(sample)
	if err != nil {
		r.log.Debug("reader: charset detection failed", zap.Error(err))
	} else if charset != "" {
		candidates = append(candidates, charset)
	}
	candidates = append(candidates, LegacyEncoding, UniversalEncoding)

	tried := make(map[string]bool, len(candidates))
	for _, name := range candidates {
		canonical, ok := canonicalName(name)
		if !ok || tried[canonical] {
			continue
		}
		tried[canonical] = true

		if text, ok := decodeStrict(canonical, raw); ok {
			return &Result{
				Text:       text,
				Encoding:   canonical,
				Confidence: confidence,
				Size:       int64(len(raw)),
			}
		}
	}

	return &Result{
		Text:       decodeReplacing(raw),
		Encoding:   LegacyEncoding + replacementSuffix,
		Confidence: confidence,
		Degraded:   true,
		Size:       int64(len(raw)),
	}
}

func canonicalName(name string) (string, bool) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", false
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		return "", false
	}
	return canonical, true
}

// decodeStrict decodes raw with the named encoding and rejects any lossy result.
func decodeStrict(name string, raw []byte) (string, bool) {
	switch name {
	case UniversalEncoding:
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(bytes.TrimPrefix(raw, []byte("\uFEFF"))), true
	case LegacyEncoding:
		for _, b := range raw {
			if cp1252Undefined[b] {
				return "", false
			}
		}
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	if bytes.Contains(out, utf8Replacement) && !bytes.Contains(raw, utf8Replacement) {
		return "", false
	}
	return string(out), true
}

func decodeReplacing(raw []byte) string {
	var buf bytes.Buffer
	buf.Grow(len(raw))
	for _, b := range raw {
		if cp1252Undefined[b] {
			buf.WriteRune(utf8.RuneError)
			continue
		}
		buf.WriteRune(charmap.Windows1252.DecodeByte(b))
	}
	return buf.String()
}
