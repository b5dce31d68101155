package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ballotledger/pkg/domain-errors"
)

// TestParseAccount_Invariants validates the parsing invariant:
// "accounts are 0x-prefixed 20-byte hex addresses compared case-insensitively"
func TestParseAccount_Invariants(t *testing.T) {
	t.Run("canonicalizes mixed case", func(t *testing.T) {
		a, err := ParseAccount("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
		require.NoError(t, err)
		assert.Equal(t, Account("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"), a)
	})

	t.Run("different casing compares equal", func(t *testing.T) {
		a := MustParseAccount("0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
		b := MustParseAccount("0xabcdef0123456789abcdef0123456789abcdef01")
		assert.Equal(t, a, b)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		a, err := ParseAccount("  0x0000000000000000000000000000000000000001 ")
		require.NoError(t, err)
		assert.Equal(t, "0x0000000000000000000000000000000000000001", a.String())
	})
}

func TestParseAccount_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"missing prefix", "f39fd6e51aad88f6f4ce6ab8827279cfffb92266"},
		{"too short", "0x1234"},
		{"too long", "0x" + strings.Repeat("a", 41)},
		{"non hex", "0xzz9fd6e51aad88f6f4ce6ab8827279cfffb92266"},
		{"null byte", "0xf39fd6e51aad88f6f4ce6ab8827279cfffb9226\x00"},
		{"SQL injection attempt", "'; DROP TABLE voters;--"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccount(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestAccountChecksum(t *testing.T) {
	// Reference vectors from EIP-55.
	for _, want := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		a := MustParseAccount(want)
		assert.Equal(t, want, a.Checksum())
	}
	assert.Equal(t, "", Account("").Checksum())
}

func TestParseCandidateID(t *testing.T) {
	id, err := ParseCandidateID("3")
	require.NoError(t, err)
	assert.Equal(t, CandidateID(3), id)
	assert.Equal(t, "3", id.String())

	for _, bad := range []string{"", "-1", "abc", "1.5"} {
		_, err := ParseCandidateID(bad)
		require.Error(t, err, "input %q", bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}
