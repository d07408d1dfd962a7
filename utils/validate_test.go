package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Email string `json:"email" validate:"required,email"`
	Date  string `json:"date" validate:"omitempty,isodate"`
	Time  string `json:"time" validate:"omitempty,hhmm"`
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(&sampleInput{Email: "nope", Date: "2024-13-01", Time: "25:00"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Tag
	}
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "isodate", fields["date"])
	assert.Equal(t, "hhmm", fields["time"])
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(&sampleInput{Email: "ana@example.com", Date: "2024-02-29", Time: "09:30"})
	assert.NoError(t, err)
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(32)
	require.NoError(t, err)
	b, err := GenerateToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, Pages(0, 10))
	assert.Equal(t, 1, Pages(10, 10))
	assert.Equal(t, 2, Pages(11, 10))
	assert.Equal(t, 0, Pages(5, 0))
}
