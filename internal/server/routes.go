package server

import (
	"net/http"
	"strings"
)

func (s *Server) handleMailboxRoutes(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("request", "method", r.Method, "path", r.URL.Path)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/mailboxes/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "":
		s.mailboxesHandler(w, r)
	case len(parts) == 2 && parts[1] == "bounces":
		s.listBouncesHandler(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "bounces":
		s.bounceDetailHandler(w, r, parts[0], parts[2])
	default:
		http.NotFound(w, r)
	}
}
