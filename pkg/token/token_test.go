package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		in   string
		want TokenType
	}{
		{"select", SELECT},
		{"qualify", QUALIFY},
		{"top", TOP},
		{"customer_id", IDENT},
		{"SELECT", IDENT}, // callers lowercase first
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupIdent(tt.in))
		})
	}
}

func TestTokenType_String(t *testing.T) {
	assert.Equal(t, "SELECT", SELECT.String())
	assert.Equal(t, "::", DCOLON.String())
	assert.Equal(t, "TOKEN(9999)", TokenType(9999).String())
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved(FROM))
	assert.True(t, IsKeyword(FIRST))
	assert.False(t, IsReserved(FIRST), "FIRST is usable as a column name")
	assert.False(t, IsKeyword(IDENT))
}
