package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomString_UsesOnlyAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := RandomString(CodeAlphabet, 6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(CodeAlphabet, c), "unexpected rune %q", c)
		}
	}
}

func TestRandomString_RejectsEmptyInput(t *testing.T) {
	_, err := RandomString("", 6)
	assert.Error(t, err)

	_, err = RandomString(CodeAlphabet, 0)
	assert.Error(t, err)
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 5, ParseInt("5", 1))
	assert.Equal(t, 1, ParseInt("", 1))
	assert.Equal(t, 1, ParseInt("abc", 1))
	assert.Equal(t, 10, ParseInt("-3", 10))
}

func TestPasswordHash_RoundTrip(t *testing.T) {
	hash, err := HashPassword("secret123", 4)
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestAuthContext(t *testing.T) {
	id := uuid.New()
	ctx := SetAuthContext(context.Background(), AuthInfo{UserID: id, Role: "admin", Token: "tok"})

	got, ok := GetUserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)

	role, _ := GetRoleFromContext(ctx)
	assert.Equal(t, "admin", role)

	_, ok = GetUserIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestValidateStruct(t *testing.T) {
	type sample struct {
		Email    string `json:"email" validate:"required,email"`
		Quantity int    `json:"quantity" validate:"min=1"`
	}

	errs := ValidateStruct(sample{Email: "nope", Quantity: 0})

	assert.Equal(t, "Invalid email format", errs["Email"])
	assert.Equal(t, "Minimum is 1", errs["Quantity"])
	assert.Equal(t, "Email: Invalid email format; Quantity: Minimum is 1", FormatValidationErrors(errs))
	assert.Nil(t, ValidateStruct(sample{Email: "a@b.co", Quantity: 1}))
}

func TestResponseError_WritesCode(t *testing.T) {
	rec := httptest.NewRecorder()

	ResponseError(rec, http.StatusConflict, "SEAT_TAKEN", "Seat is already taken", map[string]any{"row": 1})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Equal(t, "SEAT_TAKEN", body.Code)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 3, CalculateTotalPages(21, 10))
	assert.Equal(t, 0, CalculateTotalPages(0, 10))
	assert.Equal(t, 20, CalculateOffset(3, 10))
	assert.Equal(t, 0, CalculateOffset(0, 10))
}
