package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fakeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"flat message", `{"status":"error","message":"Saldo insuficiente"}`, "Saldo insuficiente"},
		{"envelope", `{"error":{"code":"INVALID_INPUT","message":"bad phone"}}`, "bad phone"},
		{"json without message", `{"status":"error"}`, "Erro no pagamento"},
		{"empty body", ``, "Erro no pagamento"},
		{"plain text with fallback", `gateway down`, "Erro no pagamento"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rerr := ParseResponseError(fakeResponse(http.StatusBadRequest, tt.body), "gibrapay", "Erro no pagamento")
			assert.Equal(t, "gibrapay", rerr.Service)
			assert.Equal(t, http.StatusBadRequest, rerr.StatusCode)
			assert.Equal(t, tt.wantMsg, rerr.Message)
		})
	}
}

func TestParseResponseError_PlainTextWithoutFallback(t *testing.T) {
	rerr := ParseResponseError(fakeResponse(http.StatusBadGateway, " upstream timeout \n"), "gibrapay", "")
	assert.Equal(t, "upstream timeout", rerr.Message)
	assert.Contains(t, rerr.Error(), "502")
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(399))
	assert.False(t, IsClientError(500))
}
