package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Software", "software"},
		{"Música Digital", "musica-digital"},
		{"Cartões de Oferta", "cartoes-de-oferta"},
		{"Ação & Aventura", "acao-aventura"},
		{"  E-books & Cursos!  ", "e-books-cursos"},
		{"Jogos -- PC", "jogos-pc"},
		{"Top 10", "top-10"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.in))
		})
	}
}
