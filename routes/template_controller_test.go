package routes

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/formflow/model"
)

func createTemplate(t *testing.T, env *testEnv, token string, tmpl map[string]any) model.Template {
	t.Helper()
	resp := env.do("POST", "/api/templates", token, tmpl)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	created := model.Template{}
	env.decode(resp, &created)
	require.NotEmpty(t, created.ID)
	return created
}

func TestCreateTemplate_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do("POST", "/api/templates", "", map[string]any{"title": "T"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "You must be logged in to create a template", env.errorMessage(resp))
}

func TestCreateTemplate_Defaults(t *testing.T) {
	env := newTestEnv(t)
	authorId, token := env.signup("Author", "author@formflow.dev")

	created := createTemplate(t, env, token, map[string]any{
		"title": "Customer feedback",
		"tags":  []string{"feedback", "  support  ", "feedback"},
	})

	assert.Equal(t, "Customer feedback", created.Title)
	assert.Equal(t, "Other", created.Topic)
	assert.Equal(t, model.AccessPublic, created.Access)
	assert.Equal(t, authorId, created.AuthorID)
	// tags are trimmed and deduplicated
	assert.ElementsMatch(t, []string{"feedback", "support"}, created.Tags)
}

func TestCreateTemplate_RejectsBadAccess(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup("Author", "author@formflow.dev")

	resp := env.do("POST", "/api/templates", token, map[string]any{
		"title":  "T",
		"access": "FRIENDS_ONLY",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetTemplate_RestrictedAccess(t *testing.T) {
	env := newTestEnv(t)
	_, authorToken := env.signup("Author", "author@formflow.dev")
	_, strangerToken := env.signup("Stranger", "stranger@formflow.dev")
	_, adminToken := env.signup("Admin", "admin@formflow.dev")
	env.promoteAdmin("admin@formflow.dev")
	adminToken = env.login("admin@formflow.dev", "hunter2")

	created := createTemplate(t, env, authorToken, map[string]any{
		"title":  "Secret survey",
		"access": "RESTRICTED",
	})
	addQuestion(t, env, authorToken, created.ID, "Q1", model.SingleLine)

	// stranger is denied, not shown a 404
	resp := env.do("GET", "/api/templates/"+created.ID, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "You don't have access to this template", env.errorMessage(resp))

	// anonymous likewise
	resp = env.do("GET", "/api/templates/"+created.ID, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// the author gets the full template, questions included
	resp = env.do("GET", "/api/templates/"+created.ID, authorToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	got := model.Template{}
	env.decode(resp, &got)
	assert.Len(t, got.Questions, 1)

	// so does an admin
	resp = env.do("GET", "/api/templates/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestGetTemplate_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do("GET", "/api/templates/no-such-id", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Template not found", env.errorMessage(resp))
}

func TestListTemplates_PublicOnlyForStrangers(t *testing.T) {
	env := newTestEnv(t)
	authorId, token := env.signup("Author", "author@formflow.dev")

	createTemplate(t, env, token, map[string]any{"title": "Open", "access": "PUBLIC"})
	createTemplate(t, env, token, map[string]any{"title": "Hidden", "access": "RESTRICTED"})

	resp := env.do("GET", "/api/templates", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := struct {
		Templates []model.Template `json:"templates"`
	}{}
	env.decode(resp, &body)
	require.Len(t, body.Templates, 1)
	assert.Equal(t, "Open", body.Templates[0].Title)

	// the author filter lifts the PUBLIC-only restriction
	resp = env.do("GET", "/api/templates?author="+authorId, "", nil)
	env.decode(resp, &body)
	assert.Len(t, body.Templates, 2)
}

func TestListTemplates_TagAndQueryFilter(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup("Author", "author@formflow.dev")

	createTemplate(t, env, token, map[string]any{"title": "Party RSVP", "tags": []string{"events"}})
	createTemplate(t, env, token, map[string]any{"title": "Bug report", "tags": []string{"dev"}})

	body := struct {
		Templates []model.Template `json:"templates"`
	}{}

	resp := env.do("GET", "/api/templates?tag=events", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	env.decode(resp, &body)
	require.Len(t, body.Templates, 1)
	assert.Equal(t, "Party RSVP", body.Templates[0].Title)

	resp = env.do("GET", "/api/templates?query=bug", "", nil)
	env.decode(resp, &body)
	require.Len(t, body.Templates, 1)
	assert.Equal(t, "Bug report", body.Templates[0].Title)
}

func TestUpdateTemplate_ReplacesTagSet(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup("Author", "author@formflow.dev")
	_, strangerToken := env.signup("Stranger", "stranger@formflow.dev")

	created := createTemplate(t, env, token, map[string]any{
		"title": "T",
		"tags":  []string{"old"},
	})

	update := map[string]any{
		"title":       "T2",
		"description": "updated",
		"topic":       "Education",
		"access":      "RESTRICTED",
		"tags":        []string{"new", "fresh"},
	}

	resp := env.do("PUT", "/api/templates/"+created.ID, strangerToken, update)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "You don't have permission to update this template", env.errorMessage(resp))

	resp = env.do("PUT", "/api/templates/"+created.ID, token, update)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := model.Template{}
	env.decode(resp, &updated)
	assert.Equal(t, "T2", updated.Title)
	assert.Equal(t, model.AccessRestricted, updated.Access)
	assert.ElementsMatch(t, []string{"new", "fresh"}, updated.Tags)
}

func TestDeleteTemplate(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup("Author", "author@formflow.dev")

	created := createTemplate(t, env, token, map[string]any{"title": "Doomed"})
	addQuestion(t, env, token, created.ID, "Q1", model.SingleLine)

	resp := env.do("DELETE", "/api/templates/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do("GET", "/api/templates/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// cascade took the questions with it
	var count int
	err := env.app.QueryRow("SELECT COUNT(*) FROM question WHERE template_id = ?", created.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestToggleTemplateLike(t *testing.T) {
	env := newTestEnv(t)
	_, authorToken := env.signup("Author", "author@formflow.dev")
	_, fanToken := env.signup("Fan", "fan@formflow.dev")

	created := createTemplate(t, env, authorToken, map[string]any{"title": "Likeable"})

	body := struct {
		Liked bool `json:"liked"`
		Likes int  `json:"likes"`
	}{}

	resp := env.do("POST", "/api/templates/"+created.ID+"/like", fanToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	env.decode(resp, &body)
	assert.True(t, body.Liked)
	assert.Equal(t, 1, body.Likes)

	// second toggle takes the like back
	resp = env.do("POST", "/api/templates/"+created.ID+"/like", fanToken, nil)
	env.decode(resp, &body)
	assert.False(t, body.Liked)
	assert.Equal(t, 0, body.Likes)
}

func TestListTags_UsageCounts(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup("Author", "author@formflow.dev")

	createTemplate(t, env, token, map[string]any{"title": "A", "tags": []string{"common", "rare"}})
	createTemplate(t, env, token, map[string]any{"title": "B", "tags": []string{"common"}})

	resp := env.do("GET", "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	tags := []model.Tag{}
	env.decode(resp, &tags)
	require.Len(t, tags, 2)
	assert.Equal(t, "common", tags[0].Name)
	assert.Equal(t, 2, tags[0].Count)
	assert.Equal(t, "rare", tags[1].Name)
	assert.Equal(t, 1, tags[1].Count)
}
