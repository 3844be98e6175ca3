package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oonrumail/bearerbox/internal/smscconn"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready reports not-ready only while every configured SMSC connection is
// still dead; a core with zero SMSCs configured (e.g. smsbox-only/WAP
// deployments) is ready by definition.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	infos := s.router.Infos()
	allDead := len(infos) > 0
	for _, info := range infos {
		if info.Status != smscconn.StatusDead.String() {
			allDead = false
			break
		}
	}
	if allDead {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusResponse struct {
	SMSCConnections  []smscconn.Info `json:"smsc_connections"`
	SmsboxConnections int            `json:"smsbox_connections,omitempty"`
}

func (s *Server) statusAll(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{SMSCConnections: s.router.Infos()}
	if s.smsboxCount != nil {
		resp.SmsboxConnections = s.smsboxCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) statusOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn, ok := s.router.ByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such connection"})
		return
	}
	writeJSON(w, http.StatusOK, conn.Info())
}
