package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "ballotledger/pkg/domain-errors"
)

const accountHexLen = 40

// Account identifies a caller. It is a 20-byte address held in canonical
// lower-case hex form with the 0x prefix, so equality is case-insensitive on
// input and plain == afterwards.
type Account string

// ParseAccount validates and canonicalizes an address string.
func ParseAccount(s string) (Account, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	body, ok := strings.CutPrefix(s, "0x")
	if !ok {
		body, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || len(body) != accountHexLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account must be a 0x-prefixed 20-byte hex address")
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account must be a 0x-prefixed 20-byte hex address")
	}
	return Account("0x" + strings.ToLower(body)), nil
}

// MustParseAccount is ParseAccount for constants and tests.
func MustParseAccount(s string) Account {
	a, err := ParseAccount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Account) String() string {
	return string(a)
}

// IsNil reports whether the account is the zero value.
func (a Account) IsNil() bool {
	return a == ""
}

// Checksum renders the account in EIP-55 mixed-case form for display.
func (a Account) Checksum() string {
	if a.IsNil() {
		return ""
	}
	body := strings.TrimPrefix(string(a), "0x")
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(body))
	digest := h.Sum(nil)

	out := []byte(body)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

// CandidateID is the sequential identifier assigned at registration.
// Valid identifiers start at 1.
type CandidateID uint64

// ParseCandidateID parses a decimal candidate identifier. Range checks
// against the registry belong to the election model.
func ParseCandidateID(s string) (CandidateID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "candidate id is required")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "candidate id must be a non-negative integer")
	}
	return CandidateID(n), nil
}

func (id CandidateID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
