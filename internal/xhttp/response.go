package xhttp

import (
	"net/http"

	go_json "github.com/goccy/go-json"
)

// WriteJSON encodes data before writing the status line, so an encoding
// failure becomes a 500 instead of a truncated body.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	body, err := go_json.Marshal(data)
	if err != nil {
		Error(w, http.StatusInternalServerError)
		return
	}
	SetHeaderContentTypeApplicationJSON(w)
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func WriteOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

func Error(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}
