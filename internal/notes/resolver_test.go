package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noteText = `NOTES TO THE ANNUAL ACCOUNTS

Note 5 Share capital
The subscribed capital amounts to EUR 31.000.

Note 6 Créances sur des entreprises liées
Loan to Holdco S.à r.l. (entreprises liées)        500.000.000
Accrued interest from affiliated undertakings       17.400.000
Sundry receivables                                   2.000.000

Note 7 Other provisions
General provisions for litigation.
`

func TestResolveICNote(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(noteText, "Note 6")

	assert.True(t, res.NoteAccessible)
	assert.Contains(t, res.NoteContent, "Holdco")
	assert.NotContains(t, res.NoteContent, "litigation")

	require.Len(t, res.ICBreakdown, 3)
	for _, item := range res.ICBreakdown {
		assert.True(t, item.ConfirmedIC)
		assert.NotEmpty(t, item.ICKeywordMatched)
	}
	require.NotNil(t, res.ICBreakdown[1].Amount)
	assert.InDelta(t, 500000000, *res.ICBreakdown[1].Amount, 0.01)

	// "Sundry receivables" has no IC vocabulary and must not be itemized.
	for _, item := range res.ICBreakdown {
		assert.NotContains(t, item.Description, "Sundry")
	}
}

func TestResolveNoteWithoutICVocabulary(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(noteText, "Note 7")

	assert.True(t, res.NoteAccessible)
	assert.Nil(t, res.ICBreakdown)
	assert.NotEmpty(t, res.ParsingWarnings)
	assert.Contains(t, res.NoteContent, "litigation")
}

func TestResolveMissingNote(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(noteText, "Note 99")

	assert.False(t, res.NoteAccessible)
	assert.Nil(t, res.ICBreakdown)
	require.NotEmpty(t, res.ParsingWarnings)
	assert.Contains(t, res.ParsingWarnings[0], "Note 99")
}

func TestResolveBadReference(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(noteText, "Annex A")

	assert.False(t, res.NoteAccessible)
	assert.NotEmpty(t, res.ParsingWarnings)
}

func TestResolveAll(t *testing.T) {
	r := NewResolver(nil)
	out := r.ResolveAll(noteText, []string{"Note 6", "Note 7"})

	require.Len(t, out, 2)
	assert.True(t, out["Note 6"].HasICBreakdown())
	assert.False(t, out["Note 7"].HasICBreakdown())
}

// Every itemized entry must carry ConfirmedIC and the literal keyword that
// justified it.
func TestBreakdownItemsAlwaysConfirmed(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(noteText, "Note 6")
	for _, item := range res.ICBreakdown {
		assert.True(t, item.ConfirmedIC)
		assert.NotEmpty(t, item.ICKeywordMatched)
	}
}
