package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/model"
)

// lookaheadLines is how far below a caption the amount may sit when the
// layout wraps the number onto its own line.
const lookaheadLines = 2

// snippetLen caps the stored source citation, mirroring the anchor snippets
// the original filings database kept.
const snippetLen = 200

// Extractor scans raw statement text with an immutable pattern library and
// produces the two extraction structures. It is a pure function of its input
// text: no internal state changes across calls, and re-running on identical
// text yields identical output.
type Extractor struct {
	lib *Library
}

// New creates an Extractor over the given pattern library.
func New(lib *Library) *Extractor {
	return &Extractor{lib: lib}
}

// NewDefault creates an Extractor over the embedded bilingual library.
func NewDefault() (*Extractor, error) {
	lib, err := DefaultLibrary()
	if err != nil {
		return nil, eris.Wrap(err, "extract: load default library")
	}
	return New(lib), nil
}

// textLine is one line of the converted document with its position.
type textLine struct {
	text string
	page int // 1-based, advanced by form feeds from pdftotext
	num  int // 1-based line number within the document
}

// Extract pulls the balance-sheet and P&L fields from raw text. Fields with
// no caption match are left with nil amount and nil source; a zero amount is
// only ever produced by a literal zero in the text.
func (e *Extractor) Extract(text string) (*model.BalanceSheetExtraction, *model.ProfitAndLossExtraction) {
	lines := splitLines(text)

	bs := &model.BalanceSheetExtraction{}
	pl := &model.ProfitAndLossExtraction{}

	targets := make(map[string]*model.ExtractedValue)
	for _, f := range bs.Fields() {
		targets[f.Name] = f.Value
	}
	for _, f := range pl.Fields() {
		targets[f.Name] = f.Value
	}

	// First pass: top-level captions. Remember where each matched so the
	// affiliate sub-lines can anchor to their parents.
	matchedAt := make(map[string]int)
	for _, spec := range e.lib.Specs() {
		if spec.Parent != "" {
			continue
		}
		dst, ok := targets[spec.Key]
		if !ok {
			zap.L().Warn("extract: pattern key has no extraction field", zap.String("key", spec.Key))
			continue
		}
		if idx, ok := e.matchField(spec, lines, 0, len(lines), dst); ok {
			matchedAt[spec.Key] = idx
		}
	}

	// Second pass: a) sub-lines, restricted to the window below their parent.
	// A sub-line with no located parent stays absent: matching it anywhere
	// else risks reading the parent total as the affiliate amount.
	for _, spec := range e.lib.Specs() {
		if spec.Parent == "" {
			continue
		}
		dst, ok := targets[spec.Key]
		if !ok {
			continue
		}
		parentIdx, ok := matchedAt[spec.Parent]
		if !ok {
			continue
		}
		window := spec.Window
		if window <= 0 {
			window = lookaheadLines + 1
		}
		end := parentIdx + 1 + window
		if end > len(lines) {
			end = len(lines)
		}
		// The window stops at the next top-level caption: a sub-line past
		// that point belongs to the following statement item.
		for key, idx := range matchedAt {
			if key != spec.Parent && idx > parentIdx && idx < end {
				end = idx
			}
		}
		e.matchField(spec, lines, parentIdx+1, end, dst)
	}

	return bs, pl
}

// matchField tries each pattern in order against lines[from:to] and fills
// dst from the first hit that yields an amount. Returns the matched line
// index. A caption hit without any locatable amount leaves dst untouched.
func (e *Extractor) matchField(spec FieldSpec, lines []textLine, from, to int, dst *model.ExtractedValue) (int, bool) {
	for _, re := range e.lib.PatternsFor(spec.Key) {
		for i := from; i < to; i++ {
			loc := re.FindStringIndex(lines[i].text)
			if loc == nil {
				continue
			}
			if e.fillValue(dst, re, lines, i, loc[1]) {
				return i, true
			}
			// Caption matched but no amount nearby; keep the position so
			// sub-lines can still anchor, but leave the value absent.
			return i, true
		}
	}
	return 0, false
}

// fillValue populates dst from the caption line and, failing that, the next
// couple of lines. Every populated amount gets a source citation; the two
// are set together or not at all.
func (e *Extractor) fillValue(dst *model.ExtractedValue, re *regexp.Regexp, lines []textLine, idx, captionEnd int) bool {
	caption := lines[idx]

	if amt, ok := firstAmount(caption.text, captionEnd); ok {
		src := snippet(caption.text)
		page := caption.page
		dst.Amount = &amt
		dst.Source = &src
		dst.PageNumber = &page
		dst.LineReference = fmt.Sprintf("line %d", caption.num)
		dst.NoteReference = findNoteRef(caption.text)
		dst.MatchedPattern = re.String()
		dst.Confidence = model.ConfidenceHigh
		return true
	}

	for j := idx + 1; j <= idx+lookaheadLines && j < len(lines); j++ {
		// Never read an amount off an a)/b) sub-line or the next statement
		// caption: those numbers belong to other fields.
		if subLineMarker.MatchString(lines[j].text) || e.isCaptionLine(lines[j].text) {
			break
		}
		amt, ok := firstAmount(lines[j].text, 0)
		if !ok {
			continue
		}
		src := snippet(caption.text) + " / " + snippet(lines[j].text)
		page := caption.page
		dst.Amount = &amt
		dst.Source = &src
		dst.PageNumber = &page
		dst.LineReference = fmt.Sprintf("line %d", caption.num)
		dst.NoteReference = firstNonEmpty(findNoteRef(caption.text), findNoteRef(lines[j].text))
		dst.MatchedPattern = re.String()
		dst.Confidence = model.ConfidenceMedium
		dst.Warning = "amount taken from a following line"
		return true
	}

	// Caption without an amount: still record the note reference so the
	// note resolver can chase it, but no amount means no source.
	dst.NoteReference = findNoteRef(caption.text)
	return false
}

// isCaptionLine reports whether a line matches any top-level caption in the
// library.
func (e *Extractor) isCaptionLine(line string) bool {
	for _, spec := range e.lib.Specs() {
		if spec.Parent != "" {
			continue
		}
		for _, re := range e.lib.PatternsFor(spec.Key) {
			if re.MatchString(line) {
				return true
			}
		}
	}
	return false
}

// splitLines breaks the converted text into lines, tracking pages via the
// form feeds pdftotext emits between pages.
func splitLines(text string) []textLine {
	raw := strings.Split(text, "\n")
	out := make([]textLine, 0, len(raw))
	page := 1
	for i, l := range raw {
		page += strings.Count(l, "\f")
		clean := strings.ReplaceAll(l, "\f", "")
		out = append(out, textLine{text: clean, page: page, num: i + 1})
	}
	return out
}

// subLineMarker detects statutory a)/b)/c) sub-line captions.
var subLineMarker = regexp.MustCompile(`^\s*[a-d]\)`)

var collapseWS = regexp.MustCompile(`\s+`)

// snippet trims and compacts a line for use as a source citation.
func snippet(s string) string {
	s = strings.TrimSpace(collapseWS.ReplaceAllString(s, " "))
	if len(s) > snippetLen {
		s = s[:snippetLen]
	}
	return s
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
