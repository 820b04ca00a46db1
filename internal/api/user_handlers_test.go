package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombotower/tower-server/internal/session"
)

// followFlash fetches path with the session cookie set by rec and returns
// the body, so assertions can see the flash rendered on the next page.
func followFlash(t *testing.T, ts *testServer, rec *httptest.ResponseRecorder, path string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	// A browser keeps only the last Set-Cookie for a given name, so send
	// just the final session cookie (the response may also carry the stale
	// pre-rotation one).
	var last *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge >= 0 {
			last = c
		}
	}
	if last != nil {
		req.AddCookie(last)
	}
	rec2 := httptest.NewRecorder()
	ts.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)
	return rec2.Body.String()
}

func TestSignupFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postForm(t, "/signup", url.Values{
		"username": {"alice"},
		"email":    {"alice@example.com"},
		"password": {"longenough"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	body := followFlash(t, ts, rec, "/login")
	assert.Contains(t, body, "Account created successfully! You can now log in.")
}

func TestSignupValidationFlashes(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "taken")

	cases := []struct {
		name    string
		form    url.Values
		message string
	}{
		{
			name:    "empty username",
			form:    url.Values{"username": {"   "}, "password": {"longenough"}},
			message: "Username cannot be empty.",
		},
		{
			name:    "short password",
			form:    url.Values{"username": {"bob"}, "password": {"short"}},
			message: "Password must be at least 8 characters long.",
		},
		{
			name:    "duplicate username",
			form:    url.Values{"username": {"taken"}, "password": {"longenough"}},
			message: "Username or email already taken. Please choose another or login.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.postForm(t, "/signup", tc.form, nil)
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/signup", rec.Header().Get("Location"))

			body := followFlash(t, ts, rec, "/signup")
			assert.Contains(t, body, tc.message)
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")

	cookie := ts.login(t, "alice")

	body := ts.get(t, "/", cookie).Body.String()
	assert.Contains(t, body, "Successfully logged in as alice")
	assert.Contains(t, body, "alice")

	// The flash shows once.
	body = ts.get(t, "/", cookie).Body.String()
	assert.NotContains(t, body, "Successfully logged in as alice")
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")

	rec := ts.postForm(t, "/login", url.Values{
		"username": {"alice"},
		"password": {"wrong password"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	body := followFlash(t, ts, rec, "/login")
	assert.Contains(t, body, "Invalid credentials")

	// Unknown usernames flash the same message.
	rec = ts.postForm(t, "/login", url.Values{
		"username": {"nobody"},
		"password": {"longenough"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	body = followFlash(t, ts, rec, "/login")
	assert.Contains(t, body, "Invalid credentials")
}

func TestLoginPreservesNext(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")

	// A failed login keeps the next target in the redirect.
	rec := ts.postForm(t, "/login", url.Values{
		"username": {"alice"},
		"password": {"wrong password"},
		"next":     {"/prompt/new"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next="+url.QueryEscape("/prompt/new"), rec.Header().Get("Location"))

	// A successful login follows it.
	rec = ts.postForm(t, "/login", url.Values{
		"username": {"alice"},
		"password": {"longenough"},
		"next":     {"/prompt/new"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/prompt/new", rec.Header().Get("Location"))
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")

	rec := ts.postForm(t, "/login", url.Values{
		"username": {"alice"},
		"password": {"longenough"},
		"next":     {"https://evil.example.com/"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")
	laptop := ts.login(t, "alice")
	phone := ts.login(t, "alice")

	rec := ts.postForm(t, "/settings/password", url.Values{
		"current-password": {"longenough"},
		"new-password":     {"anotherlongone"},
	}, laptop)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/settings", rec.Header().Get("Location"))

	body := followFlash(t, ts, rec, "/settings")
	assert.Contains(t, body, "Password changed successfully.")

	// The other device is logged out.
	rec = ts.get(t, "/dashboard", phone)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")

	// Only the new password logs in.
	rec = ts.postForm(t, "/login", url.Values{
		"username": {"alice"},
		"password": {"anotherlongone"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = ts.postForm(t, "/login", url.Values{
		"username": {"alice"},
		"password": {"longenough"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")
	cookie := ts.login(t, "alice")

	rec := ts.postForm(t, "/settings/password", url.Values{
		"current-password": {"wrong password"},
		"new-password":     {"anotherlongone"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/settings", rec.Header().Get("Location"))

	body := ts.get(t, "/settings", cookie).Body.String()
	assert.Contains(t, body, "Current password is incorrect.")

	// The session survives a failed attempt.
	rec = ts.get(t, "/dashboard", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSettingsRequiresLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/settings", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next="+url.QueryEscape("/settings"), rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")
	cookie := ts.login(t, "alice")

	rec := ts.get(t, "/logout", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	// The old cookie no longer authenticates.
	rec = ts.get(t, "/dashboard", cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")
}
