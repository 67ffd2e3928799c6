package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/service"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestSignup_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	cases := []struct {
		name string
		body map[string]string
		msg  string
	}{
		{"empty", map[string]string{}, "Full Name is required."},
		{"blank name", map[string]string{"fullName": "   "}, "Full Name is required."},
		{"short name", map[string]string{"fullName": "Al"}, "Full Name must be 4 or more characters long."},
		{"bad email", map[string]string{
			"fullName": "Alice Liddell", "username": "alice", "email": "nope", "password": "secret1",
		}, "Invalid email address."},
		{"short password", map[string]string{
			"fullName": "Alice Liddell", "username": "alice", "email": "a@example.com", "password": "123",
		}, "Password must be 6 or more characters long."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := f.callJSON(t, http.MethodPost, "/api/v1/auth/signup", "", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.False(t, out.Success)
			require.Equal(t, tc.msg, out.Message)
		})
	}
	require.Empty(t, f.auth.signups)
}

func TestSignup_CreatedAndTrimmed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	rec, out := f.callJSON(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"fullName": "  Alice Liddell ", "username": "alice", "email": "a@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, out.Success)
	require.Equal(t, "User registered successfully.", out.Message)
	require.Len(t, f.auth.signups, 1)
	require.Equal(t, "Alice Liddell", f.auth.signups[0].FullName)
}

func TestSignup_DuplicateIs400(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	f.auth.signupErr = errs.E(errs.ErrConflict, service.MsgUsernameTaken)

	rec, out := f.callJSON(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"fullName": "Alice Liddell", "username": "alice", "email": "a@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, service.MsgUsernameTaken, out.Message)
}

func TestLogin_SetsCookiesAndHidesSecrets(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	rec, out := f.callJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": alice.Email, "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "User logged in successfully.", out.Message)
	require.NotContains(t, string(out.Data), "PwdHash")
	require.NotContains(t, string(out.Data), "not-for-clients")

	var acc map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &acc))
	require.Equal(t, alice.Username, acc["username"])
	require.NotContains(t, acc, "password")

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, accessCookie)
	require.Contains(t, cookies, refreshCookie)
	for _, c := range cookies {
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
		require.Equal(t, http.SameSiteStrictMode, c.SameSite)
	}
	require.Equal(t, aliceAccess, cookies[accessCookie].Value)
	require.True(t, cookies[refreshCookie].Expires.After(cookies[accessCookie].Expires))
	require.Equal(t, "192.0.2.1", f.auth.loginIP)
}

func TestLogin_Failures(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	rec, out := f.callJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": alice.Email, "password": "wrong-one",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, service.MsgBadCredentials, out.Message)

	f.auth.loginErr = errs.E(errs.ErrRateLimited, service.MsgTooManyAttempts)
	rec, out = f.callJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": alice.Email, "password": "secret1",
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, service.MsgTooManyAttempts, out.Message)
}

func TestSession_CookieBearerAndRejection(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	rec, out := f.call(t, http.MethodGet, "/api/v1/auth/current-user", "", "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, service.MsgForbiddenToken, out.Message)

	rec, _ = f.call(t, http.MethodGet, "/api/v1/auth/current-user", "forged", "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, out = f.call(t, http.MethodGet, "/api/v1/auth/current-user", aliceAccess, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "User fetched successfully.", out.Message)
	require.NotContains(t, string(out.Data), "not-for-clients")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/current-user", nil)
	req.Header.Set("Authorization", "Bearer "+aliceAccess)
	brec := httptest.NewRecorder()
	f.h.ServeHTTP(brec, req)
	require.Equal(t, http.StatusOK, brec.Code)
}

func TestLogout_ClearsCookies(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	rec, out := f.call(t, http.MethodPost, "/api/v1/auth/logout", aliceAccess, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "User logged out successfully.", out.Message)
	require.Equal(t, alice.ID, f.auth.loggedOut[0])

	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.Name == accessCookie || c.Name == refreshCookie {
			require.Empty(t, c.Value)
			require.True(t, c.MaxAge < 0)
			cleared++
		}
	}
	require.Equal(t, 2, cleared)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	rec, out := f.call(t, http.MethodPost, "/api/v1/auth/refresh-token", "", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, service.MsgUnauthorized, out.Message)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: "superseded"})
	srec := httptest.NewRecorder()
	f.h.ServeHTTP(srec, req)
	require.Equal(t, http.StatusUnauthorized, srec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: aliceRefresh})
	okrec := httptest.NewRecorder()
	f.h.ServeHTTP(okrec, req)
	require.Equal(t, http.StatusOK, okrec.Code)

	got := map[string]string{}
	for _, c := range okrec.Result().Cookies() {
		got[c.Name] = c.Value
	}
	require.Equal(t, "access-rotated", got[accessCookie])
	require.Equal(t, "refresh-rotated", got[refreshCookie])

	rec, _ = f.callJSON(t, http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"refreshToken": aliceRefresh})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	rec, out := f.callJSON(t, http.MethodPost, "/api/v1/auth/reset-password-request", "", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, service.MsgUserNotExist, out.Message)

	rec, out = f.callJSON(t, http.MethodPost, "/api/v1/auth/reset-password-request", "", map[string]string{"email": alice.Email})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Reset password email sent.", out.Message)

	f.auth.resetErr = errs.E(errs.ErrUpstream, service.MsgResetMailFailed)
	rec, out = f.callJSON(t, http.MethodPost, "/api/v1/auth/reset-password-request", "", map[string]string{"email": alice.Email})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, service.MsgResetMailFailed, out.Message)

	rec, out = f.callJSON(t, http.MethodPost, "/api/v1/auth/reset-password/bad-token", "", map[string]string{"newPassword": "newsecret"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, service.MsgResetTokenBad, out.Message)

	rec, out = f.callJSON(t, http.MethodPost, "/api/v1/auth/reset-password/good-token", "", map[string]string{"newPassword": "123"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "New Password must be 6 or more characters long.", out.Message)

	rec, out = f.callJSON(t, http.MethodPost, "/api/v1/auth/reset-password/good-token", "", map[string]string{"newPassword": "newsecret"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Password reset successfully.", out.Message)
	require.Equal(t, "newsecret", f.auth.resetPwd)
}

func TestAuthRateLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{AuthRateLimit: 2})

	body := map[string]string{"email": alice.Email, "password": "secret1"}
	for i := 0; i < 2; i++ {
		rec, _ := f.callJSON(t, http.MethodPost, "/api/v1/auth/login", "", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, out := f.callJSON(t, http.MethodPost, "/api/v1/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.False(t, out.Success)

	// other route groups are not limited by the auth limiter
	rec, _ = f.call(t, http.MethodGet, "/api/v1/health", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
