// Package bounce classifies returned mail. It inspects either the structured
// delivery-status part of a DSN (RFC 3464) or the free text of a non-standard
// bounce, and maps it onto a fixed catalog of rules. Each rule yields a
// category, a severity and a recommendation to remove the recipient.
//
// The package is pure: it does no I/O and keeps no state between calls.
package bounce

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedContentType is returned by ClassifyBody for a content type
// outside the ContentType enumeration.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// UnrecognizedRuleID identifies the result produced when no rule matched.
const UnrecognizedRuleID = "0000"

// MessageScanLimit bounds how much of a message/* body is inspected.
const MessageScanLimit = 1000

// Severity is the bounce type of a result.
type Severity string

const (
	SeverityHard      Severity = "hard"
	SeveritySoft      Severity = "soft"
	SeverityTemporary Severity = "temporary"
	SeverityBlocked   Severity = "blocked"
)

// Result is the outcome of a classification.
type Result struct {
	RuleID     string   `json:"rule_id"`
	Category   Category `json:"category"`
	BounceType Severity `json:"bounce_type"`
	Email      string   `json:"email"`
	Remove     bool     `json:"remove"`

	// Set only for DSN results.
	Action         string `json:"action,omitempty"`
	Status         string `json:"status,omitempty"`
	DiagnosticCode string `json:"diagnostic_code,omitempty"`
}

// Unrecognized returns the sentinel result. The caller substitutes the
// envelope sender for its empty Email.
func Unrecognized() Result {
	return Result{
		RuleID:   UnrecognizedRuleID,
		Category: CategoryUnrecognized,
	}
}

// Matched reports whether a catalog rule produced r.
func (r Result) Matched() bool {
	return r.RuleID != "" && r.RuleID != UnrecognizedRuleID
}

// ContentType is the top-level media class of a bounce body.
type ContentType int

const (
	ContentTypeText ContentType = iota
	ContentTypeMultipart
	ContentTypeMessage
)

func (ct ContentType) valid() bool {
	return ct >= ContentTypeText && ct <= ContentTypeMessage
}

func (ct ContentType) String() string {
	switch ct {
	case ContentTypeText:
		return "text"
	case ContentTypeMultipart:
		return "multipart"
	case ContentTypeMessage:
		return "message"
	}
	return fmt.Sprintf("ContentType(%d)", int(ct))
}

// ContentTypeOf maps a media type such as "multipart/report" to its class.
func ContentTypeOf(mediaType string) (ContentType, bool) {
	top, _, _ := strings.Cut(mediaType, "/")
	switch strings.ToLower(strings.TrimSpace(top)) {
	case "text":
		return ContentTypeText, true
	case "multipart":
		return ContentTypeMultipart, true
	case "message":
		return ContentTypeMessage, true
	}
	return 0, false
}

// HeaderGetter is the read side of a message header.
type HeaderGetter interface {
	Get(key string) string
}
