package httpapi

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every response.
type Envelope struct {
	Code Code   `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func writeCode(w http.ResponseWriter, code Code, data any) {
	writeJSON(w, code.HTTPStatus(), Envelope{Code: code, Msg: code.Label(), Data: data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
