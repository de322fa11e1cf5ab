package server

import (
	"encoding/json"
	"net/http"

	vverrors "vpc-visualizer/internal/errors"
)

type messagesResponse struct {
	Messages []string `json:"messages"`
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeMessages(w http.ResponseWriter, status int, messages ...string) {
	body, _ := json.Marshal(messagesResponse{Messages: messages})
	writeJSON(w, status, body)
}

// writeError answers with the user-facing part of err. Every domain failure
// is a 500; transport kinds map to their own status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch vverrors.KindOf(err) {
	case vverrors.KindUnauthorized:
		status = http.StatusUnauthorized
	case vverrors.KindMethodNotAllowed:
		status = http.StatusMethodNotAllowed
	}
	writeMessages(w, status, vverrors.UserMessage(err))
}
