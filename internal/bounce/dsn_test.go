package bounce

import (
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const perMessage = "Reporting-MTA: dns; mx.example.net\nArrival-Date: Mon, 9 Feb 2009 10:00:00 +0200\n\n"

func recipientGroup(rcpt, action, status, diag string) string {
	g := "Final-Recipient: rfc822; " + rcpt + "\nAction: " + action + "\n"
	if status != "" {
		g += "Status: " + status + "\n"
	}
	if diag != "" {
		g += "Diagnostic-Code: " + diag + "\n"
	}
	return g
}

func TestClassifyDSNUnknownUser(t *testing.T) {
	block := perMessage + recipientGroup("john@example.com", "failed", "5.1.1", "smtp; 550 5.1.1 unknown user")

	res := ClassifyDSN("This is the mail system.", block)

	assert.Equal(t, "0193", res.RuleID)
	assert.Equal(t, CategoryUnknown, res.Category)
	assert.Equal(t, SeverityHard, res.BounceType)
	assert.Equal(t, "john@example.com", res.Email)
	assert.True(t, res.Remove)
	assert.Equal(t, "failed", res.Action)
	assert.Equal(t, "5.1.1", res.Status)
	assert.Equal(t, "smtp; 550 5.1.1 unknown user", res.DiagnosticCode)
}

func TestClassifyDSNMailboxFull(t *testing.T) {
	block := perMessage + recipientGroup("<jane@example.com>", "failed", "4.2.2", "smtp; 452 4.2.2 mailbox full")

	res := ClassifyDSN("", block)

	assert.Equal(t, CategoryFull, res.Category)
	assert.Equal(t, SeveritySoft, res.BounceType)
	assert.Equal(t, "jane@example.com", res.Email)
	assert.True(t, res.Remove)
}

func TestClassifyDSN(t *testing.T) {
	tests := []struct {
		name     string
		block    string
		rule     string
		category Category
		severity Severity
		email    string
	}{
		{
			name:     "class 5 fallback",
			block:    perMessage + recipientGroup("a@example.com", "failed", "5.0.0", "smtp; 550 go away"),
			rule:     "0270",
			category: CategoryOther,
			severity: SeverityHard,
			email:    "a@example.com",
		},
		{
			name:     "class 4 fallback",
			block:    perMessage + recipientGroup("a@example.com", "failed", "4.0.0", "smtp; 451 please come back"),
			rule:     "0271",
			category: CategoryOther,
			severity: SeverityTemporary,
			email:    "a@example.com",
		},
		{
			name:     "failed without status",
			block:    perMessage + recipientGroup("a@example.com", "failed", "", ""),
			rule:     "0272",
			category: CategoryOther,
			severity: SeverityHard,
			email:    "a@example.com",
		},
		{
			name:     "delayed",
			block:    perMessage + recipientGroup("a@example.com", "delayed", "4.4.1", "smtp; 451 4.4.1 no answer from host"),
			rule:     "0252",
			category: CategoryDelayed,
			severity: SeverityTemporary,
			email:    "a@example.com",
		},
		{
			name:     "relayed",
			block:    perMessage + recipientGroup("a@example.com", "relayed", "2.0.0", ""),
			rule:     "0258",
			category: CategoryWarning,
			severity: SeveritySoft,
			email:    "a@example.com",
		},
		{
			name:     "over quota",
			block:    perMessage + recipientGroup("a@example.com", "failed", "5.2.2", "smtp; 552 5.2.2 Over quota"),
			rule:     "0105",
			category: CategoryFull,
			severity: SeveritySoft,
			email:    "a@example.com",
		},
		{
			name:     "user unknown",
			block:    perMessage + recipientGroup("a@example.com", "failed", "5.1.1", "smtp; 550 5.1.1 <a@example.com>... User unknown"),
			rule:     "0103",
			category: CategoryUnknown,
			severity: SeverityHard,
			email:    "a@example.com",
		},
		{
			name:     "host not found",
			block:    perMessage + recipientGroup("a@example.invalid", "failed", "5.4.4", "X-Postfix; Host or domain name not found. Name service error for name=example.invalid type=A: Host not found"),
			rule:     "0247",
			category: CategoryDNSUnknown,
			severity: SeverityHard,
			email:    "a@example.invalid",
		},
		{
			name:     "blocklisted",
			block:    perMessage + recipientGroup("a@example.com", "failed", "5.7.1", "smtp; 554 5.7.1 Service unavailable; Client host [192.0.2.1] blocked using zen.spamhaus.org"),
			rule:     "0143",
			category: CategoryAntispam,
			severity: SeverityBlocked,
			email:    "a@example.com",
		},
		{
			name:     "refused by recipient",
			block:    perMessage + recipientGroup("a@example.com", "failed", "5.7.1", "smtp; 550 5.7.1 Message refused by recipient"),
			rule:     "0124",
			category: CategoryUserReject,
			severity: SeverityHard,
			email:    "a@example.com",
		},
		{
			name:     "concurrent connections",
			block:    perMessage + recipientGroup("a@example.com", "failed", "4.7.0", "smtp; 421 4.7.0 Too many concurrent SMTP connections"),
			rule:     "0135",
			category: CategoryConcurrent,
			severity: SeveritySoft,
			email:    "a@example.com",
		},
		{
			name:     "status refinement",
			block:    perMessage + recipientGroup("a@example.com", "failed", "5.2.1", "smtp; 550 go away"),
			rule:     "0263",
			category: CategoryInactive,
			severity: SeverityHard,
			email:    "a@example.com",
		},
		{
			name:     "original recipient only",
			block:    perMessage + "Original-Recipient: rfc822;<b@example.com>\nAction: failed\nStatus: 5.1.1\n",
			rule:     "0261",
			category: CategoryUnknown,
			severity: SeverityHard,
			email:    "b@example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ClassifyDSN("", tt.block)
			assert.Equal(t, tt.rule, res.RuleID)
			assert.Equal(t, tt.category, res.Category)
			assert.Equal(t, tt.severity, res.BounceType)
			assert.Equal(t, tt.email, res.Email)
		})
	}
}

func TestClassifyDSNSentinel(t *testing.T) {
	tests := []struct {
		name  string
		block string
	}{
		{"empty", ""},
		{"no fields", "this is not a status block\n\nneither is this\n"},
		{"delivered", perMessage + recipientGroup("a@example.com", "delivered", "2.0.0", "smtp; 250 ok")},
		{"success status", perMessage + recipientGroup("a@example.com", "", "2.1.5", "")},
		{"nothing to go on", perMessage + "Final-Recipient: rfc822; a@example.com\nAction: unknown-action\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ClassifyDSN("", tt.block)
			assert.Equal(t, Unrecognized(), res)
			assert.False(t, res.Matched())
			assert.Equal(t, "", res.Email)
		})
	}
}

func TestClassifyDSNFirstMatchingRecipient(t *testing.T) {
	block := perMessage +
		recipientGroup("ok@example.com", "delivered", "2.0.0", "smtp; 250 ok") + "\n" +
		recipientGroup("gone@example.com", "failed", "5.1.1", "smtp; 550 5.1.1 User unknown") + "\n" +
		recipientGroup("full@example.com", "failed", "5.2.2", "smtp; 552 mailbox full")

	res := ClassifyDSN("", block)
	assert.Equal(t, CategoryUnknown, res.Category)
	assert.Equal(t, "gone@example.com", res.Email)
}

func TestClassifyDSNAddressFromExplanation(t *testing.T) {
	res := ClassifyDSN("Your message could not be delivered: quota exceeded for <bob@example.com>", "Reporting-MTA: dns; mx.example.net\n")

	assert.Equal(t, "0161", res.RuleID)
	assert.Equal(t, CategoryFull, res.Category)
	assert.Equal(t, "bob@example.com", res.Email)
}

func TestClassifyDSNTransientNeverHard(t *testing.T) {
	diags := []string{
		"smtp; 450 4.1.1 unknown user",
		"smtp; 451 4.4.0 Host or domain name not found",
		"smtp; 450 4.7.1 Client host blocked using bl.spamcop.net",
		"smtp; 451 4.3.0 Local error in processing",
		"smtp; 450 too many hops",
		"smtp; 421 go away",
	}
	for _, d := range diags {
		for _, act := range []string{"failed", "delayed"} {
			res := ClassifyDSN("", perMessage+recipientGroup("a@example.com", act, "4.0.0", d))
			require.True(t, res.Matched(), d)
			assert.Contains(t, []Severity{SeveritySoft, SeverityTemporary}, res.BounceType, "%s / %s", act, d)
		}
	}
}

func TestClassifyDSNPermanentIsHard(t *testing.T) {
	for _, d := range []string{"smtp; 550 go away", "smtp; 554 transaction failed", "smtp; 550 5.1.1 unknown user"} {
		res := ClassifyDSN("", perMessage+recipientGroup("a@example.com", "failed", "5.9.9", d))
		assert.Equal(t, SeverityHard, res.BounceType, d)
	}
}

func TestClassifyDSNIdempotent(t *testing.T) {
	block := perMessage + recipientGroup("john@example.com", "failed", "5.1.1", "smtp; 550 5.1.1 unknown user")
	assert.Equal(t, ClassifyDSN("x", block), ClassifyDSN("x", block))
}

func TestParseDeliveryStatus(t *testing.T) {
	ds, ok := ParseDeliveryStatus(perMessage +
		"Final-Recipient: rfc822; a@example.com\r\nOriginal-Recipient: rfc822; alias@example.com\r\nAction: Failed\r\nStatus: 5.1.1 (bad destination mailbox)\r\nRemote-MTA: dns; mx.example.com\r\nDiagnostic-Code: smtp; 550 5.1.1\r\n user unknown\r\n")
	require.True(t, ok)
	assert.Equal(t, "mx.example.net", ds.ReportingMTA)
	require.Len(t, ds.Recipients, 1)

	rs := ds.Recipients[0]
	assert.Equal(t, "a@example.com", rs.FinalRecipient)
	assert.Equal(t, "alias@example.com", rs.OriginalRecipient)
	assert.Equal(t, "a@example.com", rs.Address())
	assert.Equal(t, "failed", rs.Action)
	assert.True(t, rs.HasStatus)
	assert.Equal(t, smtp.EnhancedCode{5, 1, 1}, rs.Status)
	assert.Equal(t, "mx.example.com", rs.RemoteMTA)
	assert.Equal(t, "smtp; 550 5.1.1 user unknown", rs.DiagnosticCode)

	_, ok = ParseDeliveryStatus("nothing here")
	assert.False(t, ok)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want smtp.EnhancedCode
		ok   bool
	}{
		{"5.1.1", smtp.EnhancedCode{5, 1, 1}, true},
		{" 4.2.22 (comment)", smtp.EnhancedCode{4, 2, 22}, true},
		{"2.0.0", smtp.EnhancedCode{2, 0, 0}, true},
		{"550", smtp.EnhancedCode{}, false},
		{"9.1.1", smtp.EnhancedCode{}, false},
		{"5.x.1", smtp.EnhancedCode{}, false},
		{"", smtp.EnhancedCode{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseStatus(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
