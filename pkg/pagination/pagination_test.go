package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query      string
		wantPage   int
		wantPer    int
		wantOffset int
	}{
		{"", 1, 20, 0},
		{"?page=3&per_page=10", 3, 10, 20},
		{"?page=-1", 1, 20, 0},
		{"?page=abc", 1, 20, 0},
		{"?per_page=0", 1, 20, 0},
		{"?per_page=100", 1, 100, 0},
		{"?per_page=101", 1, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest(http.MethodGet, "/admin/support"+tt.query, nil))
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPer, p.PerPage)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestNewResult(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 45, Params{Page: 2, PerPage: 20})
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)

	last := NewResult([]string{"z"}, 41, Params{Page: 3, PerPage: 20})
	assert.False(t, last.HasNext)
}

func TestNewResult_Empty(t *testing.T) {
	r := NewResult[string](nil, 0, DefaultParams())
	assert.NotNil(t, r.Data)
	assert.Equal(t, 0, r.TotalPages)
	assert.False(t, r.HasNext)
	assert.False(t, r.HasPrev)
}
