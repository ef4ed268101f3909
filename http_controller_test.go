package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultStatus(t *testing.T) {
	cases := []struct {
		name     string
		success  bool
		message  string
		errs     []string
		expected int
	}{
		{"success", true, MsgLoginSuccessful, nil, http.StatusOK},
		{"timeout wins", false, MsgLoginFailed, []string{MsgRequestTimedOut}, http.StatusServiceUnavailable},
		{"bad credentials", false, MsgAuthenticationFailed, []string{MsgInvalidCredentials}, http.StatusUnauthorized},
		{"no session to refresh", false, MsgSessionNotRefreshed, nil, http.StatusUnauthorized},
		{"admin denied", false, MsgAdminRegistrationDenied, nil, http.StatusForbidden},
		{"duplicate", false, MsgUserExists, []string{MsgEmailOrUsernameTaken}, http.StatusConflict},
		{"missing user", false, MsgUserNotFoundOrInactive, nil, http.StatusNotFound},
		{"store failure", false, MsgRegistrationFailed, []string{MsgUnexpected}, http.StatusInternalServerError},
		{"validation", false, MsgPasswordValidation, []string{"password: too short"}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, resultStatus(tc.success, tc.message, tc.errs))
		})
	}
}

func TestNewAuthControllerRequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { NewAuthController() })
	assert.Panics(t, func() { NewAuthController(WithControllerActions(&Actions{})) })
}
