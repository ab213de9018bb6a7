package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/emurenMRz/mboxbounce/internal/bounce"
	"github.com/emurenMRz/mboxbounce/internal/mailbox"
)

// classifyHandler classifies the raw message posted as the request body.
// Messages of an unsupported type get the unrecognized result.
func (s *Server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Message too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read message", http.StatusBadRequest)
		return
	}
	if len(raw) == 0 {
		http.Error(w, "Empty message", http.StatusBadRequest)
		return
	}

	msg := mailbox.ParseMessage(raw)
	res, err := mailbox.Classify(msg)
	if err != nil && !errors.Is(err, bounce.ErrUnsupportedContentType) {
		s.log.Error("classification failed", "error", err)
		http.Error(w, "Classification failed", http.StatusInternalServerError)
		return
	}
	s.log.Debug("classified", "kind", msg.Kind.String(), "rule", res.RuleID, "category", res.Category)

	writeJSON(w, Classification{
		RuleID:     res.RuleID,
		Category:   res.Category,
		BounceType: res.BounceType,
		Email:      res.Email,
		Remove:     res.Remove,
		Kind:       msg.Kind.String(),
	})
}
