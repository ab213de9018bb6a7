package bounce

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-smtp"

	"github.com/emurenMRz/mboxbounce/internal/fieldblock"
)

// RecipientStatus is one per-recipient group of a delivery-status part.
type RecipientStatus struct {
	FinalRecipient    string
	OriginalRecipient string
	Action            string // lowercased
	Status            smtp.EnhancedCode
	HasStatus         bool
	DiagnosticCode    string
	RemoteMTA         string
}

// Address is the recipient the group reports on.
func (r RecipientStatus) Address() string {
	if r.FinalRecipient != "" {
		return r.FinalRecipient
	}
	return r.OriginalRecipient
}

func (r RecipientStatus) delivered() bool {
	switch r.Action {
	case "delivered":
		return true
	case "relayed", "expanded":
		return false
	}
	return r.HasStatus && r.Status[0] == 2
}

// DeliveryStatus is a parsed message/delivery-status part.
type DeliveryStatus struct {
	ReportingMTA string
	ArrivalDate  string
	Recipients   []RecipientStatus
}

// ParseDeliveryStatus splits block into field groups. The first group without
// recipient fields is the per-message group. ok is false when block holds no
// fields at all.
func ParseDeliveryStatus(block string) (ds DeliveryStatus, ok bool) {
	groups := fieldblock.SplitGroups(block)
	if len(groups) == 0 {
		return ds, false
	}
	for _, g := range groups {
		if !isRecipientGroup(g) {
			if ds.ReportingMTA == "" {
				ds.ReportingMTA = stripType(g.Get("Reporting-MTA"))
				ds.ArrivalDate = g.Get("Arrival-Date")
			}
			continue
		}
		rs := RecipientStatus{
			FinalRecipient:    cleanAddress(g.Get("Final-Recipient")),
			OriginalRecipient: cleanAddress(g.Get("Original-Recipient")),
			Action:            strings.ToLower(strings.TrimSpace(g.Get("Action"))),
			DiagnosticCode:    g.Get("Diagnostic-Code"),
			RemoteMTA:         stripType(g.Get("Remote-MTA")),
		}
		rs.Status, rs.HasStatus = ParseStatus(g.Get("Status"))
		ds.Recipients = append(ds.Recipients, rs)
	}
	return ds, true
}

func isRecipientGroup(g fieldblock.Block) bool {
	for _, name := range []string{"Final-Recipient", "Original-Recipient", "Action", "Status"} {
		if g.Has(name) {
			return true
		}
	}
	return false
}

func stripType(v string) string {
	if _, after, found := strings.Cut(v, ";"); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(v)
}

// ParseStatus reads "class.subject.detail" from the start of s. Trailing
// comments such as "5.1.1 (bad destination mailbox)" are ignored.
func ParseStatus(s string) (smtp.EnhancedCode, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return smtp.EnhancedCode{}, false
	}
	parts := strings.Split(fields[0], ".")
	if len(parts) != 3 {
		return smtp.EnhancedCode{}, false
	}
	var code smtp.EnhancedCode
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return smtp.EnhancedCode{}, false
		}
		code[i] = n
	}
	if code[0] < 2 || code[0] > 5 {
		return smtp.EnhancedCode{}, false
	}
	return code, true
}

func formatStatus(c smtp.EnhancedCode) string {
	return fmt.Sprintf("%d.%d.%d", c[0], c[1], c[2])
}

// ClassifyDSN classifies a delivery status notification from its
// human-readable explanation and its machine-readable status block.
//
// Recipient groups are tried in order and the first one a rule matches
// decides the result. Groups reporting a successful delivery are skipped. A
// status of class 4, or an action of delayed, never yields a hard result.
func ClassifyDSN(explanation, statusBlock string) Result {
	ds, ok := ParseDeliveryStatus(statusBlock)
	if !ok {
		return Unrecognized()
	}
	recipients := ds.Recipients
	if len(recipients) == 0 {
		recipients = []RecipientStatus{{}}
	}
	for _, rs := range recipients {
		if rs.delivered() {
			continue
		}
		in := &input{
			text:        rs.DiagnosticCode,
			explanation: explanation,
			action:      rs.Action,
			status:      rs.Status,
			hasStatus:   rs.HasStatus,
			recipient:   rs.Address(),
		}
		if in.text == "" {
			in.text = explanation
		}
		for i := range dsnRules {
			r := &dsnRules[i]
			m, ok := r.when(in)
			if !ok {
				continue
			}
			email := in.recipient
			if email == "" {
				email = r.extract(in, m)
			}
			if email == "" && m.text != explanation {
				email = firstAddress(explanation)
			}
			res := r.result(email)
			res.Action = rs.Action
			res.DiagnosticCode = rs.DiagnosticCode
			if rs.HasStatus {
				res.Status = formatStatus(rs.Status)
			}
			if transient(rs) && res.BounceType != SeveritySoft {
				res.BounceType = SeverityTemporary
			}
			return res
		}
	}
	return Unrecognized()
}

func transient(rs RecipientStatus) bool {
	return rs.Action == "delayed" || (rs.HasStatus && rs.Status[0] == 4)
}
