package bounce

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emurenMRz/mboxbounce/internal/fieldblock"
)

func TestCatalog(t *testing.T) {
	seen := map[string]bool{}
	for _, list := range [][]Rule{DSNRules(), BodyRules()} {
		require.NotEmpty(t, list)
		for _, r := range list {
			assert.Regexp(t, `^[0-9]{4}$`, r.ID)
			assert.NotEqual(t, UnrecognizedRuleID, r.ID)
			assert.False(t, seen[r.ID], "duplicate rule %s", r.ID)
			seen[r.ID] = true

			assert.True(t, r.Category.Known(), r.ID)
			assert.NotEqual(t, CategoryUnrecognized, r.Category, r.ID)
			assert.Contains(t, []Severity{SeverityHard, SeveritySoft, SeverityTemporary, SeverityBlocked}, r.Severity, r.ID)
			assert.NotEmpty(t, r.Sample, r.ID)
		}
	}
}

// bodySample splits a body rule sample into its header and text. Samples
// that start with Subject or Auto-Submitted carry a header block.
func bodySample(s string) (HeaderGetter, string) {
	for _, name := range []string{"Subject:", "Auto-Submitted:"} {
		if strings.HasPrefix(s, name) {
			head, text, _ := strings.Cut(s, "\n\n")
			return fieldblock.Parse(head), text
		}
	}
	return nil, s
}

// Rules that read the explanation of a report without recipient fields.
var explanationSamples = map[string]bool{"0161": true}

// dsnSample builds the explanation and status block a DSN rule sample
// stands for. Field samples go into a recipient group as they are; text
// samples become its Diagnostic-Code.
func dsnSample(r Rule) (string, string) {
	switch {
	case explanationSamples[r.ID]:
		return r.Sample, perMessage
	case strings.HasPrefix(r.Sample, "Action:"), strings.HasPrefix(r.Sample, "Status:"):
		return "", perMessage + "Final-Recipient: rfc822; user@example.com\n" + r.Sample + "\n"
	}
	return "", perMessage + recipientGroup("user@example.com", "failed", "", "smtp; "+r.Sample)
}

func TestBodyRuleSamples(t *testing.T) {
	for _, r := range BodyRules() {
		t.Run(r.ID, func(t *testing.T) {
			h, text := bodySample(r.Sample)
			res, err := ClassifyBody(text, ContentTypeText, h)
			require.NoError(t, err)
			assert.Equal(t, r.ID, res.RuleID, "sample %q", r.Sample)
			assert.Equal(t, r.Category, res.Category)
		})
	}
}

func TestDSNRuleSamples(t *testing.T) {
	for _, r := range DSNRules() {
		t.Run(r.ID, func(t *testing.T) {
			explanation, block := dsnSample(r)
			res := ClassifyDSN(explanation, block)
			assert.Equal(t, r.ID, res.RuleID, "sample %q", r.Sample)
			assert.Equal(t, r.Category, res.Category)
		})
	}
}

func TestCategoryDefaults(t *testing.T) {
	for _, c := range Categories() {
		assert.True(t, c.Known(), c)
		if c == CategoryUnrecognized {
			continue
		}
		_, ok := defaults[c]
		assert.True(t, ok, "no defaults for %s", c)
	}
	assert.False(t, Category("bogus").Known())
}

func TestLookupRule(t *testing.T) {
	r, ok := LookupRule("0236")
	require.True(t, ok)
	assert.Equal(t, CategoryUnknown, r.Category)

	r, ok = LookupRule("0105")
	require.True(t, ok)
	assert.Equal(t, CategoryFull, r.Category)
	assert.Equal(t, SeveritySoft, r.Severity)

	_, ok = LookupRule(UnrecognizedRuleID)
	assert.False(t, ok)
}

func TestRulesAreCopies(t *testing.T) {
	rules := BodyRules()
	rules[0].Category = CategoryWarning
	assert.NotEqual(t, CategoryWarning, BodyRules()[0].Category)
}

func TestNearestAddress(t *testing.T) {
	tests := []struct {
		name string
		text string
		at   string
		want string
	}{
		{"same line before", "a@example.com: user unknown", "user unknown", "a@example.com"},
		{"same line after", "user unknown: <b@example.com>", "user unknown", "b@example.com"},
		{"line above", "  c@example.com\n  unrouteable address", "unrouteable address", "c@example.com"},
		{"closest wins", "x@example.com\ny@example.com: user unknown", "user unknown", "y@example.com"},
		{"too far above", "z@example.com\n1\n2\n3\n4\n5\nuser unknown", "user unknown", ""},
		{"trailing dot trimmed", "user unknown for d@example.com.", "user unknown", "d@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := strings.Index(tt.text, tt.at)
			require.GreaterOrEqual(t, start, 0)
			assert.Equal(t, tt.want, nearestAddress(tt.text, start, start+len(tt.at)))
		})
	}
}

func TestCleanAddress(t *testing.T) {
	assert.Equal(t, "a@example.com", cleanAddress("rfc822; <a@example.com>"))
	assert.Equal(t, "a@example.com", cleanAddress(" 'a@example.com'. "))
	assert.Equal(t, "", cleanAddress("rfc822; unknown"))
}
