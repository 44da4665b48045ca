package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"registration-service/internal/apperror"
)

type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		code = http.StatusInternalServerError
		response = []byte(`{"success":false,"message":"Internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// RespondWithData writes the {success: true, data} envelope.
func RespondWithData(w http.ResponseWriter, code int, data interface{}) {
	RespondWithJSON(w, code, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// RespondWithError writes an error response in JSON format
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Success: false, Message: message})
}

// RespondWithAppError maps err to a status and envelope. Messages of
// unexpected errors are replaced unless exposeInternal is set.
func RespondWithAppError(w http.ResponseWriter, err error, exposeInternal bool) {
	var ae *apperror.AppError
	if !errors.As(err, &ae) {
		ae = apperror.Wrap(err, apperror.CodeInternal, "Internal server error")
	}

	resp := ErrorResponse{Success: false, Message: ae.Message}
	switch ae.Code {
	case apperror.CodeInvalid:
		resp.Errors = ae.Fields
	case apperror.CodeInternal:
		if exposeInternal && ae.Err != nil {
			resp.Message = ae.Message + ": " + ae.Err.Error()
		} else {
			resp.Message = "Internal server error"
		}
	}

	RespondWithJSON(w, apperror.HTTPStatus(ae.Code), resp)
}
