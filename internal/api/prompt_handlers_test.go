package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedRendersPrompts(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	ts.createPrompt(t, alice.ID, "My first prompt")

	rec := ts.get(t, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "My first prompt")
	assert.Contains(t, body, "alice")
	// The feed shows metadata only, never the prompt text.
	assert.NotContains(t, body, "content of My first prompt")
}

func TestPromptDetail(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	id := ts.createPrompt(t, alice.ID, "Detailed prompt")

	rec := ts.get(t, fmt.Sprintf("/prompt/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Detailed prompt")
	assert.Contains(t, body, "content of Detailed prompt")
	assert.Contains(t, body, "tokens")

	rec = ts.get(t, "/prompt/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.get(t, "/prompt/notanumber", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPromptRaw(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	id := ts.createPrompt(t, alice.ID, "Raw prompt")

	rec := ts.get(t, fmt.Sprintf("/prompt/%d/raw", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "content of Raw prompt", rec.Body.String())

	rec = ts.get(t, "/prompt/9999/raw", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePrompt(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	cookie := ts.login(t, "alice")

	rec := ts.postForm(t, "/prompt/new", url.Values{
		"prompt-title":       {"A new prompt"},
		"prompt-description": {"what it does"},
		"prompt-text":        {"You are a helpful assistant."},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	// The form round-trips: back to the empty form with a flash.
	assert.Equal(t, "/prompt/new", rec.Header().Get("Location"))

	body := ts.get(t, "/prompt/new", cookie).Body.String()
	assert.Contains(t, body, "Prompt created successfully!")

	assert.Contains(t, ts.get(t, "/", cookie).Body.String(), "A new prompt")

	prompts, err := ts.store.ListUserPrompts(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, prompts, 1)

	detail := ts.get(t, fmt.Sprintf("/prompt/%d", prompts[0].ID), cookie).Body.String()
	assert.Contains(t, detail, "You are a helpful assistant.")
}

func TestCreatePromptWithTags(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	cookie := ts.login(t, "alice")

	tags, err := ts.store.ListTags(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tags)

	rec := ts.postForm(t, "/prompt/new", url.Values{
		"prompt-title": {"Tagged prompt"},
		"prompt-text":  {"content"},
		"prompt-tags":  {fmt.Sprintf("%d", tags[0].ID)},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/prompt/new", rec.Header().Get("Location"))

	prompts, err := ts.store.ListUserPrompts(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, prompts, 1)

	attached, err := ts.store.GetPromptTags(context.Background(), prompts[0].ID)
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.Equal(t, tags[0].Name, attached[0].Name)
}

func TestCreatePromptWithUnknownTag(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	cookie := ts.login(t, "alice")

	rec := ts.postForm(t, "/prompt/new", url.Values{
		"prompt-title": {"Mistagged prompt"},
		"prompt-text":  {"content"},
		"prompt-tags":  {"9999"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/prompt/new", rec.Header().Get("Location"))

	// The prompt exists untagged and the failure is surfaced, not swallowed.
	body := ts.get(t, "/prompt/new", cookie).Body.String()
	assert.Contains(t, body, "tags could not be saved")

	prompts, err := ts.store.ListUserPrompts(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, prompts, 1)

	attached, err := ts.store.GetPromptTags(context.Background(), prompts[0].ID)
	require.NoError(t, err)
	assert.Empty(t, attached)
}

func TestCreatePromptRejectsEmptyTitle(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")
	cookie := ts.login(t, "alice")

	rec := ts.postForm(t, "/prompt/new", url.Values{
		"prompt-title": {"   "},
		"prompt-text":  {"content"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/prompt/new", rec.Header().Get("Location"))
}

func TestToggleStar(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	ts.signup(t, "bob")
	id := ts.createPrompt(t, alice.ID, "Starred prompt")
	cookie := ts.login(t, "bob")

	starPath := fmt.Sprintf("/prompt/%d/star", id)

	// Plain form post redirects back to the prompt.
	rec := ts.postForm(t, starPath, nil, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, fmt.Sprintf("/prompt/%d", id), rec.Header().Get("Location"))

	body := ts.get(t, fmt.Sprintf("/prompt/%d", id), cookie).Body.String()
	assert.Contains(t, body, "1")

	// Anonymous visitors are sent to login instead.
	rec = ts.postForm(t, starPath, nil, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")
}

func TestToggleStarHTMX(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	id := ts.createPrompt(t, alice.ID, "Starred prompt")
	cookie := ts.login(t, "alice")

	star := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, fmt.Sprintf("/prompt/%d/star", id), nil)
		req.Header.Set("HX-Request", "true")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		ts.ServeHTTP(rec, req)
		return rec
	}

	rec := star(http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hx-delete")
	assert.Contains(t, rec.Body.String(), "1")

	// The delete toggles back.
	rec = star(http.MethodDelete)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hx-post")
	assert.Contains(t, rec.Body.String(), "0")
}

func TestSetTags(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	id := ts.createPrompt(t, alice.ID, "Tagged prompt")
	cookie := ts.login(t, "alice")

	tags, err := ts.store.ListTags(context.Background())
	require.NoError(t, err)
	require.True(t, len(tags) >= 2)

	rec := ts.postForm(t, fmt.Sprintf("/prompt/%d/tags", id), url.Values{
		"tags": {fmt.Sprintf("%d", tags[0].ID), fmt.Sprintf("%d", tags[1].ID)},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := ts.store.GetPromptTags(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// An empty form clears the tag set.
	rec = ts.postForm(t, fmt.Sprintf("/prompt/%d/tags", id), url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err = ts.store.GetPromptTags(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSetTagsAuthorOnly(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	ts.signup(t, "bob")
	id := ts.createPrompt(t, alice.ID, "Owned prompt")

	tagsPath := fmt.Sprintf("/prompt/%d/tags", id)

	// Anonymous.
	rec := ts.postForm(t, tagsPath, url.Values{"tags": {"1"}}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")

	// Logged in, but not the author.
	bobCookie := ts.login(t, "bob")
	rec = ts.postForm(t, tagsPath, url.Values{"tags": {"1"}}, bobCookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTagEditForm(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	ts.signup(t, "bob")
	id := ts.createPrompt(t, alice.ID, "Owned prompt")

	editPath := fmt.Sprintf("/prompt/%d/tags/edit", id)

	aliceCookie := ts.login(t, "alice")
	rec := ts.get(t, editPath, aliceCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checkbox")

	bobCookie := ts.login(t, "bob")
	rec = ts.get(t, editPath, bobCookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.get(t, editPath, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFeedPagination(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	for i := 0; i < 25; i++ {
		ts.createPrompt(t, alice.ID, fmt.Sprintf("prompt number %02d", i))
	}

	body := ts.get(t, "/", nil).Body.String()
	assert.Contains(t, body, "?page=2")

	rec := ts.get(t, "/?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "?page=1")
}

func TestParseTagList(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, parseTagList([]string{"1", "2", "3"}))
	assert.Equal(t, []int64{1, 2, 3}, parseTagList([]string{"1, 2, 3"}))
	assert.Equal(t, []int64{1, 3}, parseTagList([]string{"1", "oops", "3"}))
	assert.Empty(t, parseTagList(nil))
}
