package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/utf7"
	"github.com/emersion/go-mbox"

	"github.com/emurenMRz/mboxbounce/internal/bounce"
	"github.com/emurenMRz/mboxbounce/internal/mailbox"
)

var errBadMailboxName = errors.New("invalid mailbox name")

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) mailboxesHandler(w http.ResponseWriter, _ *http.Request) {
	files, err := os.ReadDir(s.basePath)
	if err != nil {
		http.Error(w, "Failed to read directory", http.StatusInternalServerError)
		return
	}

	mailboxes := []string{}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		// Files on disk are IMAP-UTF7 encoded; decode to UTF-8 for API response
		decodedName, err := utf7.Encoding.NewDecoder().String(file.Name())
		if err != nil {
			s.log.Warn("failed to decode mailbox filename", "file", file.Name(), "error", err)
			continue
		}
		mailboxes = append(mailboxes, decodedName)
	}

	writeJSON(w, mailboxes)
}

// mboxPath maps a UTF-8 mailbox name from the API onto its file in basePath.
func (s *Server) mboxPath(mailboxName string) (string, error) {
	encoded, err := utf7.Encoding.NewEncoder().String(mailboxName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadMailboxName, err)
	}
	if encoded == "" || encoded == "." || encoded == ".." || strings.ContainsAny(encoded, `/\`) {
		return "", errBadMailboxName
	}
	return filepath.Join(s.basePath, encoded), nil
}

// readMailbox parses every message of a mailbox file. Messages marked
// deleted keep their slot so ids stay positional.
func (s *Server) readMailbox(w http.ResponseWriter, r *http.Request, mailboxName string) ([]*mailbox.Message, bool) {
	path, err := s.mboxPath(mailboxName)
	if err != nil {
		http.Error(w, "Invalid mailbox name", http.StatusBadRequest)
		return nil, false
	}
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	defer f.Close()

	var messages []*mailbox.Message
	reader := mbox.NewReader(f)
	for {
		mr, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.log.Error("error reading mbox", "mailbox", mailboxName, "error", err)
			http.Error(w, "Error reading mbox", http.StatusInternalServerError)
			return nil, false
		}
		raw, err := io.ReadAll(mr)
		if err != nil {
			s.log.Warn("error reading message", "mailbox", mailboxName, "id", len(messages), "error", err)
			messages = append(messages, nil)
			continue
		}
		messages = append(messages, mailbox.ParseMessage(raw))
	}
	return messages, true
}

func deleted(msg *mailbox.Message) bool {
	return msg == nil || strings.TrimSpace(msg.Header.Get("Status")) == "D"
}

func bounceOf(id int, msg *mailbox.Message) Bounce {
	res, _ := mailbox.Classify(msg)
	return Bounce{
		ID:        id,
		From:      msg.From,
		Date:      msg.Header.Get("Date"),
		Subject:   msg.Subject,
		Kind:      msg.Kind.String(),
		Result:    res,
		Timestamp: msg.Date(),
	}
}

func (s *Server) listBouncesHandler(w http.ResponseWriter, r *http.Request, mailboxName string) {
	messages, ok := s.readMailbox(w, r, mailboxName)
	if !ok {
		return
	}

	bounces := []Bounce{}
	for i, msg := range messages {
		if deleted(msg) {
			continue
		}
		bounces = append(bounces, bounceOf(i, msg))
	}

	// sort by Timestamp descending (newest first). Zero timestamps go last.
	sort.SliceStable(bounces, func(a, b int) bool {
		ta := bounces[a].Timestamp
		tb := bounces[b].Timestamp
		if ta.Equal(tb) {
			return bounces[a].ID < bounces[b].ID
		}
		if ta.IsZero() {
			return false
		}
		if tb.IsZero() {
			return true
		}
		return ta.After(tb)
	})

	writeJSON(w, bounces)
}

func (s *Server) bounceDetailHandler(w http.ResponseWriter, r *http.Request, mailboxName, idStr string) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid bounce ID", http.StatusBadRequest)
		return
	}
	messages, ok := s.readMailbox(w, r, mailboxName)
	if !ok {
		return
	}
	if id < 0 || id >= len(messages) || deleted(messages[id]) {
		http.NotFound(w, r)
		return
	}

	msg := messages[id]
	detail := BounceDetail{Bounce: bounceOf(id, msg), Text: msg.Body}
	if msg.Kind == mailbox.KindDSN {
		detail.Text = msg.Explanation
		if ds, ok := bounce.ParseDeliveryStatus(msg.StatusBlock); ok {
			detail.DeliveryStatus = deliveryStatusOf(ds)
		}
	}
	writeJSON(w, detail)
}

func deliveryStatusOf(ds bounce.DeliveryStatus) *DeliveryStatus {
	out := &DeliveryStatus{
		ReportingMTA: ds.ReportingMTA,
		ArrivalDate:  ds.ArrivalDate,
		Recipients:   []Recipient{},
	}
	for _, rs := range ds.Recipients {
		rcpt := Recipient{
			FinalRecipient:    rs.FinalRecipient,
			OriginalRecipient: rs.OriginalRecipient,
			Action:            rs.Action,
			DiagnosticCode:    rs.DiagnosticCode,
			RemoteMTA:         rs.RemoteMTA,
		}
		if rs.HasStatus {
			rcpt.Status = fmt.Sprintf("%d.%d.%d", rs.Status[0], rs.Status[1], rs.Status[2])
		}
		out.Recipients = append(out.Recipients, rcpt)
	}
	return out
}
