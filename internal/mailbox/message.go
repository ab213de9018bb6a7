package mailbox

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message/textproto"
	"github.com/k3a/html2text"

	"github.com/emurenMRz/mboxbounce/internal/bounce"
)

// Kind tells how a message is classified.
type Kind int

const (
	// KindBody messages go through the body rules.
	KindBody Kind = iota
	// KindDSN messages carry a machine-readable delivery-status part.
	KindDSN
	// KindUnsupported messages have a top-level type that is neither
	// text, multipart nor message.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindBody:
		return "body"
	case KindDSN:
		return "dsn"
	case KindUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// Message is a bounce split into the parts the classifier needs.
type Message struct {
	Header      textproto.Header
	Subject     string
	From        string // bare envelope sender address
	MediaType   string
	Kind        Kind
	ContentType bounce.ContentType

	// Explanation and StatusBlock are set for KindDSN.
	Explanation string
	StatusBlock string
	// Body is the decoded text for KindBody.
	Body string
}

// Date is the parsed Date header, or the zero time.
func (m *Message) Date() time.Time {
	return parseDate(m.Header.Get("Date"))
}

// part is a raw MIME entity; nothing is decoded yet.
type part struct {
	header textproto.Header
	body   []byte
}

const maxPartDepth = 8

// ParseMessage locates the parts of raw needed for classification. It does
// not fail on malformed MIME: the message then degrades to KindBody over its
// raw text.
func ParseMessage(raw []byte) *Message {
	br := bufio.NewReader(bytes.NewReader(raw))
	h, err := textproto.ReadHeader(br)
	if err != nil {
		return &Message{
			Kind:        KindBody,
			ContentType: bounce.ContentTypeText,
			MediaType:   "text/plain",
			Body:        string(raw),
		}
	}
	body, _ := io.ReadAll(br)

	msg := &Message{
		Header:  h,
		Subject: decodeHeader(h.Get("Subject")),
		From:    senderAddress(h.Get("From")),
	}
	if msg.From == "" {
		msg.From = senderAddress(h.Get("Return-Path"))
	}

	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mediaType, params = "text/plain", nil
	}
	msg.MediaType = mediaType
	ct, ok := bounce.ContentTypeOf(mediaType)
	if !ok {
		msg.Kind = KindUnsupported
		return msg
	}
	msg.ContentType = ct

	top := part{header: h, body: body}
	switch ct {
	case bounce.ContentTypeMultipart:
		parts, err := readParts(body, params["boundary"])
		if err != nil || len(parts) == 0 {
			msg.Body = string(body)
			return msg
		}
		if mediaType == "multipart/report" && strings.EqualFold(params["report-type"], "delivery-status") {
			if status, ok := findStatusPart(parts); ok {
				msg.Kind = KindDSN
				msg.Explanation = textOf(parts[0], 0)
				msg.StatusBlock = decodePart(status)
				return msg
			}
		}
		msg.Body = textOf(parts[0], 0)
	case bounce.ContentTypeMessage:
		msg.Body = bounce.Decode(string(body), bounce.ParseEncoding(h.Get("Content-Transfer-Encoding")))
	default:
		msg.Body = textOf(top, 0)
	}
	return msg
}

func readParts(body []byte, boundary string) ([]part, error) {
	if boundary == "" {
		return nil, errors.New("multipart without boundary")
	}
	var parts []part
	mr := textproto.NewMultipartReader(bytes.NewReader(body), boundary)
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			// keep what was read before the damage
			if len(parts) > 0 {
				return parts, nil
			}
			return nil, err
		}
		b, err := io.ReadAll(p)
		if err != nil && len(b) == 0 {
			return parts, nil
		}
		parts = append(parts, part{header: p.Header, body: b})
	}
}

func findStatusPart(parts []part) (part, bool) {
	for _, p := range parts[1:] {
		mt, _, _ := mime.ParseMediaType(p.header.Get("Content-Type"))
		if mt == "message/delivery-status" || mt == "message/global-delivery-status" {
			return p, true
		}
	}
	if len(parts) >= 2 {
		return parts[1], true
	}
	return part{}, false
}

// decodePart undoes the transfer encoding of p.
func decodePart(p part) string {
	return bounce.Decode(string(p.body), bounce.ParseEncoding(p.header.Get("Content-Transfer-Encoding")))
}

// textOf renders p as UTF-8 text. A multipart entity yields its first
// text/plain descendant, or failing that its first part. HTML is flattened.
func textOf(p part, depth int) string {
	mediaType, params, err := mime.ParseMediaType(p.header.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}
	if strings.HasPrefix(mediaType, "multipart/") && depth < maxPartDepth {
		children, err := readParts(p.body, params["boundary"])
		if err != nil || len(children) == 0 {
			return string(p.body)
		}
		for _, c := range children {
			if mt, _, _ := mime.ParseMediaType(c.header.Get("Content-Type")); mt == "text/plain" {
				return textOf(c, depth+1)
			}
		}
		return textOf(children[0], depth+1)
	}

	text := bounce.ToUTF8([]byte(decodePart(p)), params["charset"])
	if mediaType == "text/html" {
		text = html2text.HTML2Text(text)
	}
	return text
}
