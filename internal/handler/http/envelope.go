package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Jis87-63/moz-digital-store/internal/notify"
	"github.com/Jis87-63/moz-digital-store/pkg/httputil"
	"github.com/Jis87-63/moz-digital-store/pkg/validator"
)

const maxBodyBytes = 1 << 20

// response is the storefront JSON envelope. Notifications raised while
// serving the request, or left over from an earlier one, ride along with
// every answer of the session.
type response struct {
	Data          any                     `json:"data,omitempty"`
	Error         *httputil.ErrorResponse `json:"error,omitempty"`
	Notifications []notify.Notification   `json:"notifications,omitempty"`
	RedirectURL   string                  `json:"redirect_url,omitempty"`
}

func pending(r *http.Request) []notify.Notification {
	if sess := sessionFrom(r.Context()); sess != nil {
		return sess.Inbox.Drain()
	}
	return nil
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	httputil.WriteJSON(w, status, response{Data: data, Notifications: pending(r)})
}

func writeRedirect(w http.ResponseWriter, r *http.Request, status int, data any, redirectURL string) {
	httputil.WriteJSON(w, status, response{Data: data, Notifications: pending(r), RedirectURL: redirectURL})
}

func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	writeErrorRedirect(w, r, err, "", logger)
}

func writeErrorRedirect(w http.ResponseWriter, r *http.Request, err error, redirectURL string, logger *slog.Logger) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteJSON(w, http.StatusBadRequest, response{
			Error: &httputil.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
			Notifications: pending(r),
		})
		return
	}

	status, body := httputil.ErrorFor(r, err, logger)
	httputil.WriteJSON(w, status, response{Error: body, Notifications: pending(r), RedirectURL: redirectURL})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, response{
		Error:         &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: message},
		Notifications: pending(r),
	})
}

// decode reads a JSON body into dst and validates it. It answers 400 itself
// and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			writeError(w, r, err, nil)
			return false
		}
		writeBadRequest(w, r, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeRaw reads a JSON body without struct validation, for inputs whose
// service maps failures to its own messages.
func decodeRaw(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, r, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
