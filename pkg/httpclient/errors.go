package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 1 << 20

// ResponseError describes a non-2xx reply from a remote service.
type ResponseError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Message)
}

// errorBody accepts both a flat {"message": "..."} body and the
// {"error": {"code": "...", "message": "..."}} envelope.
type errorBody struct {
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes resp.Body and extracts the remote
// error message. fallback is used when the body carries no message.
func ParseResponseError(resp *http.Response, service, fallback string) *ResponseError {
	defer func() { _ = resp.Body.Close() }()

	rerr := &ResponseError{Service: service, StatusCode: resp.StatusCode, Message: fallback}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return rerr
	}

	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Message != "":
			rerr.Message = body.Message
		case body.Error != nil && body.Error.Message != "":
			rerr.Message = body.Error.Message
		}
		return rerr
	}

	if rerr.Message == "" {
		rerr.Message = strings.TrimSpace(string(raw))
	}
	return rerr
}

// IsClientError reports whether status is a 4xx code.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
