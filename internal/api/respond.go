package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"immo-workers/internal/common/errors"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

var errMissingToken = stderrors.New("missing bearer token")

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the JSON error envelope with the status its
// code maps to.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.AsStandard(err)
	writeJSON(w, errors.HTTPStatus(stdErr.Code), errorEnvelope{Error: errorPayload{
		Code:      string(stdErr.Code),
		Message:   errors.UserMessage(stdErr),
		Details:   stdErr.Details,
		Field:     stdErr.Field,
		Retryable: stdErr.Retryable,
		RequestID: chimw.GetReqID(r.Context()),
	}})
}

func writeUnavailable(w http.ResponseWriter, r *http.Request, service string) {
	writeJSON(w, http.StatusServiceUnavailable, errorEnvelope{Error: errorPayload{
		Code:      "SERVICE_UNAVAILABLE",
		Message:   "Dienst nicht verfügbar: " + service,
		RequestID: chimw.GetReqID(r.Context()),
	}})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return errors.NewValidationError("body", "Ungültige Anfrage: "+err.Error())
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
