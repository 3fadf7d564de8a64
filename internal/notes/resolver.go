// Package notes locates referenced explanatory notes inside a statement text
// and decides whether their content is genuinely intercompany. The resolver
// never infers intercompany nature from position or numbers alone: an
// itemized IC breakdown requires an explicit keyword match, otherwise the
// note content is retained but the breakdown stays nil.
package notes

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/tp-screener/internal/extract"
	"github.com/sells-group/tp-screener/internal/model"
)

// DefaultICKeywords is the bilingual related-party vocabulary (plus the
// German variants seen in older filings). Matching is case- and
// accent-variant-insensitive via the literal forms listed here.
var DefaultICKeywords = []string{
	"entreprises liées",
	"entreprises liees",
	"entreprise liée",
	"parties liées",
	"parties liees",
	"sociétés du groupe",
	"societes du groupe",
	"affiliated undertaking",
	"related party",
	"related parties",
	"group companies",
	"intercompany",
	"intra-group",
	"intragroupe",
	"shareholder loan",
	"verbundenen unternehmen",
	"verbundene unternehmen",
}

// Resolver locates note blocks and parses intercompany breakdowns. The
// keyword table is fixed at construction; Resolver is safe for concurrent
// use across documents.
type Resolver struct {
	keywords []string
}

// NewResolver creates a Resolver with the given keyword vocabulary.
// Empty input falls back to DefaultICKeywords.
func NewResolver(keywords []string) *Resolver {
	if len(keywords) == 0 {
		keywords = DefaultICKeywords
	}
	return &Resolver{keywords: keywords}
}

// noteHeading matches a note heading line like "Note 6", "Note 6 -
// Créances" or "6. Créances sur entreprises liées".
func noteHeading(noteNum string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^\s*(?:note\s+` + noteNum + `\b|` + noteNum + `\.\s+\S)`)
}

// anyNoteHeading marks the start of the next note, ending the current block.
var anyNoteHeading = regexp.MustCompile(`(?im)^\s*note\s+\d+\b`)

// Resolve locates the block for one note reference (e.g. "Note 6") and
// parses it. An unlocatable note yields NoteAccessible false with a nil
// breakdown; it is the cross-validator's job to turn that into a warning on
// the dependent field.
func (r *Resolver) Resolve(text, noteID string) *model.NoteParsingResult {
	res := &model.NoteParsingResult{NoteID: noteID}

	num := noteNumber(noteID)
	if num == "" {
		res.ParsingWarnings = append(res.ParsingWarnings, fmt.Sprintf("unparseable note reference %q", noteID))
		return res
	}

	loc := noteHeading(num).FindStringIndex(text)
	if loc == nil {
		res.ParsingWarnings = append(res.ParsingWarnings, fmt.Sprintf("%s not found in document text", noteID))
		return res
	}

	block := text[loc[0]:]
	// The block runs to the next note heading, skipping past our own.
	if next := anyNoteHeading.FindStringIndex(block[loc[1]-loc[0]:]); next != nil {
		block = block[:loc[1]-loc[0]+next[0]]
	}

	res.NoteAccessible = true
	res.NoteContent = strings.TrimSpace(block)
	res.ICBreakdown = r.parseICBreakdown(block)

	if res.ICBreakdown == nil {
		res.ParsingWarnings = append(res.ParsingWarnings,
			fmt.Sprintf("%s contains no explicit intercompany vocabulary; breakdown not confirmed", noteID))
	}

	zap.L().Debug("notes: resolved",
		zap.String("note", noteID),
		zap.Bool("accessible", res.NoteAccessible),
		zap.Int("ic_items", len(res.ICBreakdown)),
	)
	return res
}

// ResolveAll resolves every referenced note against the same text.
func (r *Resolver) ResolveAll(text string, refs []string) map[string]*model.NoteParsingResult {
	out := make(map[string]*model.NoteParsingResult, len(refs))
	for _, ref := range refs {
		out[ref] = r.Resolve(text, ref)
	}
	return out
}

// parseICBreakdown itemizes the lines of a note block that explicitly match
// an intercompany keyword. Returns nil when no line matches: absence of
// explicit language must never be read as intercompany.
func (r *Resolver) parseICBreakdown(block string) []model.ICBreakdownItem {
	var items []model.ICBreakdownItem
	for _, line := range strings.Split(block, "\n") {
		kw := r.matchKeyword(line)
		if kw == "" {
			continue
		}
		item := model.ICBreakdownItem{
			Description:      strings.TrimSpace(line),
			ConfirmedIC:      true,
			ICKeywordMatched: kw,
		}
		if amt, ok := extract.AmountIn(line); ok {
			item.Amount = &amt
		}
		items = append(items, item)
	}
	return items
}

// matchKeyword returns the first keyword present in the line, or "".
func (r *Resolver) matchKeyword(line string) string {
	lower := strings.ToLower(line)
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

var noteNumRe = regexp.MustCompile(`\d+`)

// noteNumber pulls the numeric part out of a reference like "Note 6".
func noteNumber(noteID string) string {
	return noteNumRe.FindString(noteID)
}
