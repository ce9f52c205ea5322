package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleForm struct {
	FirstName string    `json:"firstName" validate:"required,personname"`
	Email     string    `json:"email" validate:"required,email"`
	Role      string    `json:"role" validate:"oneof=admin viewer"`
	When      time.Time `json:"when" validate:"future"`
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(sampleForm{FirstName: "R2-D2", Email: "nope", Role: "owner", When: time.Now().Add(-time.Hour)})
	require.Error(t, err)
	var rerr *RequestError
	require.True(t, errors.As(err, &rerr))
	fields := map[string]string{}
	for _, f := range rerr.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, "personname", fields["firstName"])
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "oneof", fields["role"])
	assert.Equal(t, "future", fields["when"])
	assert.Contains(t, err.Error(), "role must be one of: admin viewer")
}

func TestStruct_Valid(t *testing.T) {
	require.NoError(t, Struct(sampleForm{FirstName: "Ana María", Email: "ana@estate.test", Role: "admin", When: time.Now().Add(time.Hour)}))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.co"))
	assert.False(t, IsValidEmail("a@b"))
	assert.True(t, IsValidPassword("123456"))
	assert.False(t, IsValidPassword("12345"))
	assert.True(t, IsValidName("O'Neil-Smith"))
	assert.False(t, IsValidName(""))
}
