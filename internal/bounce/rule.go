package bounce

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/emersion/go-smtp"
)

// Rule is one catalog entry: a predicate over the bounce text and structured
// fields, the result it yields, and how the recipient address is extracted.
type Rule struct {
	ID       string
	Category Category
	Severity Severity
	Remove   bool
	// Sample is a representative snippet the rule matches.
	Sample string

	when    predicate
	extract extractor
}

// input is what a predicate sees. Body rules use text and header. DSN rules
// also get the structured fields of one recipient group.
type input struct {
	text        string
	explanation string
	header      HeaderGetter

	action    string
	status    smtp.EnhancedCode
	hasStatus bool
	recipient string
}

// match records where a text predicate matched. loc holds submatch indices
// into text; it is nil for predicates over structured fields.
type match struct {
	text string
	loc  []int
}

func (m match) group(n int) string {
	if 2*n+1 >= len(m.loc) || m.loc[2*n] < 0 {
		return ""
	}
	return m.text[m.loc[2*n]:m.loc[2*n+1]]
}

type (
	predicate func(in *input) (match, bool)
	extractor func(in *input, m match) string
	option    func(r *Rule)
)

func rule(id string, cat Category, when predicate, opts ...option) Rule {
	d := defaults[cat]
	r := Rule{
		ID:       id,
		Category: cat,
		Severity: d.severity,
		Remove:   d.remove,
		when:     when,
		extract:  defaultExtract,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func severity(s Severity) option { return func(r *Rule) { r.Severity = s } }
func sample(s string) option { return func(r *Rule) { r.Sample = s } }
func extract(e extractor) option { return func(r *Rule) { r.extract = e } }

func (r *Rule) result(email string) Result {
	return Result{
		RuleID:     r.ID,
		Category:   r.Category,
		BounceType: r.Severity,
		Email:      email,
		Remove:     r.Remove,
	}
}

// addrPattern has no capturing groups so that "{addr}" can be wrapped in one.
const addrPattern = `[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?)+`

// compile makes pattern case-insensitive and expands each "{addr}" into a
// capturing address group.
func compile(pattern string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + strings.ReplaceAll(pattern, "{addr}", "("+addrPattern+")"))
}

func textMatch(re *regexp.Regexp, text string) (match, bool) {
	if text == "" {
		return match{}, false
	}
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return match{}, false
	}
	return match{text: text, loc: loc}, true
}

// body matches the rule text: the bounce body, or the diagnostic of a DSN.
func body(pattern string) predicate {
	re := compile(pattern)
	return func(in *input) (match, bool) { return textMatch(re, in.text) }
}

// diag reads better in the DSN catalog; it is the same predicate as body.
func diag(pattern string) predicate { return body(pattern) }

func explanation(pattern string) predicate {
	re := compile(pattern)
	return func(in *input) (match, bool) { return textMatch(re, in.explanation) }
}

func header(name, pattern string) predicate {
	re := compile(pattern)
	return func(in *input) (match, bool) {
		if in.header == nil {
			return match{}, false
		}
		return textMatch(re, in.header.Get(name))
	}
}

func subject(pattern string) predicate { return header("Subject", pattern) }

func action(names ...string) predicate {
	return func(in *input) (match, bool) {
		for _, name := range names {
			if in.action == name {
				return match{}, true
			}
		}
		return match{}, false
	}
}

// status matches enhanced status codes. A "*" element matches any value, so
// "*.2.2" matches both 4.2.2 and 5.2.2.
func status(codes ...string) predicate {
	type code [3]int
	var want []code
	for _, s := range codes {
		var c code
		parts := strings.Split(s, ".")
		if len(parts) != 3 {
			panic("bounce: bad status pattern " + s)
		}
		for i, p := range parts {
			if p == "*" {
				c[i] = -1
				continue
			}
			n, err := strconv.Atoi(p)
			if err != nil {
				panic("bounce: bad status pattern " + s)
			}
			c[i] = n
		}
		want = append(want, c)
	}
	return func(in *input) (match, bool) {
		if !in.hasStatus {
			return match{}, false
		}
		for _, c := range want {
			ok := true
			for i := range c {
				if c[i] >= 0 && c[i] != in.status[i] {
					ok = false
					break
				}
			}
			if ok {
				return match{}, true
			}
		}
		return match{}, false
	}
}

func statusClass(class int) predicate {
	return func(in *input) (match, bool) {
		return match{}, in.hasStatus && in.status[0] == class
	}
}

func noRecipient() predicate {
	return func(in *input) (match, bool) { return match{}, in.recipient == "" }
}

// allOf requires every predicate. The first text match is kept for extraction.
func allOf(ps ...predicate) predicate {
	return func(in *input) (match, bool) {
		var kept match
		for _, p := range ps {
			m, ok := p(in)
			if !ok {
				return match{}, false
			}
			if kept.loc == nil {
				kept = m
			}
		}
		return kept, true
	}
}

func anyOf(ps ...predicate) predicate {
	return func(in *input) (match, bool) {
		for _, p := range ps {
			if m, ok := p(in); ok {
				return m, true
			}
		}
		return match{}, false
	}
}

// defaultExtract takes the first capture group when the pattern has one,
// then the address nearest to the match, then X-Failed-Recipients.
func defaultExtract(in *input, m match) string {
	if addr := cleanAddress(m.group(1)); addr != "" {
		return addr
	}
	if m.loc != nil {
		if addr := nearestAddress(m.text, m.loc[0], m.loc[1]); addr != "" {
			return addr
		}
	}
	if in.header != nil {
		return firstAddress(in.header.Get("X-Failed-Recipients"))
	}
	return ""
}

func group(n int) extractor {
	return func(_ *input, m match) string { return cleanAddress(m.group(n)) }
}

func fromHeader(name string) extractor {
	return func(in *input, _ match) string {
		if in.header == nil {
			return ""
		}
		return firstAddress(in.header.Get(name))
	}
}
