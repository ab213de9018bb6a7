package server

import (
	"time"

	"github.com/emurenMRz/mboxbounce/internal/bounce"
)

// Classification is the answer to POST /api/classify.
type Classification struct {
	RuleID     string          `json:"rule_id"`
	Category   bounce.Category `json:"category"`
	BounceType bounce.Severity `json:"bounce_type"`
	Email      string          `json:"email"`
	Remove     bool            `json:"remove"`
	Kind       string          `json:"kind"`
}

type Bounce struct {
	ID      int           `json:"id"`
	From    string        `json:"from"`
	Date    string        `json:"date"`
	Subject string        `json:"subject"`
	Kind    string        `json:"kind"`
	Result  bounce.Result `json:"result"`
	// Timestamp is parsed Date used for sorting. Not exported to JSON.
	Timestamp time.Time `json:"-"`
}

// BounceDetail is one message with the text the rules were run against.
type BounceDetail struct {
	Bounce
	Text           string          `json:"text"`
	DeliveryStatus *DeliveryStatus `json:"delivery_status,omitempty"`
}

type DeliveryStatus struct {
	ReportingMTA string      `json:"reporting_mta,omitempty"`
	ArrivalDate  string      `json:"arrival_date,omitempty"`
	Recipients   []Recipient `json:"recipients"`
}

type Recipient struct {
	FinalRecipient    string `json:"final_recipient,omitempty"`
	OriginalRecipient string `json:"original_recipient,omitempty"`
	Action            string `json:"action,omitempty"`
	Status            string `json:"status,omitempty"`
	DiagnosticCode    string `json:"diagnostic_code,omitempty"`
	RemoteMTA         string `json:"remote_mta,omitempty"`
}
