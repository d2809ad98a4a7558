package util

import (
	"testing"
	"time"

	"focusmath_backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 42}, Email: "asha@example.com", Role: model.Student}

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.Student, claims.Role)
	assert.Equal(t, "asha@example.com", claims.Email)
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 1}}
	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)
}

func TestParseJWTRejectsExpired(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 1}}
	token, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseJWTRejectsNoneAlg(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseJWT(signed, "secret")
	assert.Error(t, err)
}
