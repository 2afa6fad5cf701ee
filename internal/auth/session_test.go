package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_InitialState(t *testing.T) {
	s := NewSession(DefaultCredentials())
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, UnknownUser, s.CurrentUser())
	assert.Equal(t, State{}, s.State())
	assert.ErrorIs(t, s.RequireAccess(), ErrAccessDenied)
}

func TestSession_LoginSuccess(t *testing.T) {
	s := NewSession(DefaultCredentials())

	require.NoError(t, s.Login("admin", "pwd123"))
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "admin", s.CurrentUser())
	assert.NoError(t, s.RequireAccess())
	assert.Equal(t, State{LoggedIn: true, User: "admin"}, s.State())
}

func TestSession_LoginFailure(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "wrong"},
		{"unknown user", "mallory", "pwd123"},
		{"other user's password", "analyst", "pwd123"},
		{"case differs", "Admin", "pwd123"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(DefaultCredentials())
			err := s.Login(tt.username, tt.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, "Invalid username or password.", err.Error())
			assert.False(t, s.IsLoggedIn())
			assert.Equal(t, UnknownUser, s.CurrentUser())
		})
	}
}

func TestSession_FailedLoginKeepsExistingState(t *testing.T) {
	s := NewSession(DefaultCredentials())
	require.NoError(t, s.Login("analyst", "analystpass"))

	require.Error(t, s.Login("admin", "nope"))
	assert.Equal(t, "analyst", s.CurrentUser())
}

func TestSession_Logout(t *testing.T) {
	s := NewSession(DefaultCredentials())
	require.NoError(t, s.Login("admin", "pwd123"))

	s.Logout()
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, UnknownUser, s.CurrentUser())
	assert.ErrorIs(t, s.RequireAccess(), ErrAccessDenied)
}

func TestSession_CustomCredentials(t *testing.T) {
	s := NewSession(Credentials{"ops": "s3cret"})
	assert.ErrorIs(t, s.Login("admin", "pwd123"), ErrInvalidCredentials)
	assert.NoError(t, s.Login("ops", "s3cret"))
}
