package model

// ICBreakdownItem is one itemized entry inside a note's intercompany
// breakdown. ConfirmedIC is only ever true when ICKeywordMatched names the
// literal keyword that justified the classification.
type ICBreakdownItem struct {
	Description      string   `json:"description"`
	Amount           *float64 `json:"amount,omitempty"`
	ConfirmedIC      bool     `json:"confirmed_ic"`
	ICKeywordMatched string   `json:"ic_keyword_matched"`
}

// NoteParsingResult is the outcome of resolving one referenced note.
// ICBreakdown stays nil unless at least one line of the note explicitly
// matched an intercompany keyword — absence of explicit language is never
// read as intercompany by default.
type NoteParsingResult struct {
	NoteID          string            `json:"note_id"`
	NoteAccessible  bool              `json:"note_accessible"`
	NoteContent     string            `json:"note_content,omitempty"`
	ICBreakdown     []ICBreakdownItem `json:"ic_breakdown,omitempty"`
	ParsingWarnings []string          `json:"parsing_warnings,omitempty"`
}

// HasICBreakdown reports whether the note yielded a confirmed intercompany
// breakdown.
func (n *NoteParsingResult) HasICBreakdown() bool {
	return n != nil && len(n.ICBreakdown) > 0
}
