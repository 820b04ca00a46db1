package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombotower/tower-server/internal/domain"
)

func TestAPIPromptsUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/prompts", nil)
	// The extension expects a 200 with an error body, not a 401.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"error":"Not authenticated"}`, rec.Body.String())
}

func TestAPIPrompts(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	bob := ts.signup(t, "bob")
	ts.createPrompt(t, alice.ID, "mine")
	ts.createPrompt(t, bob.ID, "not mine")
	cookie := ts.login(t, "alice")

	rec := ts.get(t, "/api/prompts", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Prompts []domain.UserPrompt `json:"prompts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Prompts, 1)
	assert.Equal(t, "mine", body.Prompts[0].Title)
	assert.Equal(t, "content of mine", body.Prompts[0].Content)
	assert.NotZero(t, body.Prompts[0].ID)
}

func TestAPIPromptsEmpty(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")
	cookie := ts.login(t, "alice")

	rec := ts.get(t, "/api/prompts", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prompts":[]}`, rec.Body.String())
}

func TestAPIProfileUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/profile", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestAPIProfile(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	cookie := ts.login(t, "alice")

	rec := ts.get(t, "/api/profile", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, alice.ID, body.ID)
	assert.Equal(t, "alice@example.com", body.Email)
}
