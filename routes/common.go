package routes

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gofrs/uuid"

	"github.com/formflow/formflow/httpx"
	"github.com/formflow/formflow/log"
	"github.com/formflow/formflow/model"
	"github.com/formflow/formflow/routes/middlewares"
)

func newId() string {
	return uuid.Must(uuid.NewV4()).String()
}

// querier is implemented by both *sql.DB (through app.App) and *sql.Tx,
// so entity loaders work inside and outside transactions.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// requireActor resolves the caller's identity, answering 401 with a
// "must be logged in" message when the request is anonymous.
func requireActor(w http.ResponseWriter, r *http.Request, verb string) (model.Actor, bool) {
	actor := middlewares.ActorFrom(r)
	if actor.Anonymous() {
		httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "auth.required",
			"You must be logged in to %s", verb)
		return actor, false
	}
	return actor, true
}

func loadTemplate(ctx context.Context, q querier, id string) (model.Template, error) {
	tmpl := model.Template{Author: &model.UserRef{}}
	err := q.QueryRowContext(ctx, `
		SELECT
			t.id, t.title, t.description, t.topic, t.access, t.author_id, t.created_at,
			u.id, u.name,
			(SELECT COUNT(*) FROM form f WHERE f.template_id = t.id),
			(SELECT COUNT(*) FROM template_like l WHERE l.template_id = t.id)
		FROM template t
		INNER JOIN user u ON (u.id = t.author_id)
		WHERE t.id = ?`,
		id,
	).Scan(
		&tmpl.ID, &tmpl.Title, &tmpl.Description, &tmpl.Topic, &tmpl.Access, &tmpl.AuthorID, &tmpl.CreatedAt,
		&tmpl.Author.ID, &tmpl.Author.Name,
		&tmpl.FormCount, &tmpl.LikeCount,
	)
	return tmpl, err
}

func loadQuestions(ctx context.Context, q querier, templateId string) ([]model.Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, template_id, title, description, type, required, show_in_summary, visible, ord
		FROM question
		WHERE template_id = ?
		ORDER BY ord ASC`,
		templateId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q := model.Question{}
		err = rows.Scan(
			&q.ID, &q.TemplateID, &q.Title, &q.Description,
			&q.Type, &q.Required, &q.ShowInSummary, &q.Visible, &q.Order,
		)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func loadTemplateTags(ctx context.Context, q querier, templateId string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT g.name
		FROM tag g
		INNER JOIN template_tag tt ON (tt.tag_id = g.id)
		WHERE tt.template_id = ?
		ORDER BY g.name`,
		templateId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}
