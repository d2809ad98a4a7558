package service

import (
	"context"
	"testing"
	"time"

	"focusmath_backend/internal/config"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(env *testEnv) *AuthService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-test-secret-test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(env.users, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(env)

	user, err := svc.Register(ctx, RegisterRequest{Name: " Asha ", Email: "Asha@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", user.Name)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, model.Student, user.Role)
	assert.Equal(t, 11, user.Grade)
	assert.NotEqual(t, "password123", user.Password)

	token, loggedIn, err := svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := util.ParseJWT(token, svc.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(env)

	_, err := svc.Register(ctx, RegisterRequest{Name: "a", Email: "dup@example.com", Password: "password123", Grade: 12})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Name: "b", Email: "DUP@example.com", Password: "password123"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(env)

	_, err := svc.Register(ctx, RegisterRequest{Name: "a", Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}
