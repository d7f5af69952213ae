package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/logger"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes err as an ErrorBody with the status its class maps to.
func writeError(w http.ResponseWriter, log *zap.SugaredLogger, err error) {
	_, status := errorCode(err)
	if status >= http.StatusInternalServerError {
		log.Errorw("Request failed", logger.FieldError, err.Error())
	}
	_ = writeJSON(w, status, map[string]*ErrorBody{"error": newErrorBody(err)})
}

// requireMethod checks if the request method matches the expected method
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		_ = writeJSON(w, http.StatusMethodNotAllowed, map[string]*ErrorBody{
			"error": {Code: "method_not_allowed", Message: "Method not allowed"},
		})
		return false
	}
	return true
}

// shortID truncates an ID to 8 characters for logging
func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
