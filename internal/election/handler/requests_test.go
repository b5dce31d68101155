package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotledger/pkg/domain"
	dErrors "ballotledger/pkg/domain-errors"
)

func TestCastVoteRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    domain.CandidateID
		errCode dErrors.Code
	}{
		{name: "positive id", raw: "3", want: 3},
		{name: "largest id", raw: "18446744073709551615", want: 18446744073709551615},
		{name: "negative id maps to unknown candidate", raw: "-1", want: 0},
		{name: "overflow maps to unknown candidate", raw: "18446744073709551616", want: 0},
		{name: "fraction", raw: "1.5", errCode: dErrors.CodeValidation},
		{name: "exponent", raw: "1e3", errCode: dErrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := json.Number(tt.raw)
			id, err := CastVoteRequest{CandidateID: &n}.Validate()
			if tt.errCode != "" {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, tt.errCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}

	t.Run("missing id", func(t *testing.T) {
		_, err := CastVoteRequest{}.Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
