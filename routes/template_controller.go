package routes

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/formflow/formflow/app"
	"github.com/formflow/formflow/httpx"
	"github.com/formflow/formflow/log"
	"github.com/formflow/formflow/model"
	"github.com/formflow/formflow/routes/middlewares"
	"github.com/formflow/formflow/rules"
)

// templateFilter is the enumerated query surface of the template listing.
// Without an author filter only PUBLIC templates are returned.
type templateFilter struct {
	Author string
	Query  string
	Tag    string
	SortBy string
	Limit  int
	Offset int
}

func templateFilterFromRequest(r *http.Request) templateFilter {
	f := templateFilter{
		Author: r.URL.Query().Get("author"),
		Query:  r.URL.Query().Get("query"),
		Tag:    r.URL.Query().Get("tag"),
		SortBy: r.URL.Query().Get("sortBy"),
		Limit:  10,
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		f.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		f.Offset = offset
	}
	return f
}

func (f templateFilter) where() (string, []any) {
	conds := []string{}
	args := []any{}

	if f.Author != "" {
		conds = append(conds, "t.author_id = ?")
		args = append(args, f.Author)
	} else {
		conds = append(conds, "t.access = 'PUBLIC'")
	}
	if f.Query != "" {
		conds = append(conds, "(t.title LIKE ? OR t.description LIKE ?)")
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern)
	}
	if f.Tag != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM template_tag tt
			INNER JOIN tag g ON (g.id = tt.tag_id)
			WHERE tt.template_id = t.id AND g.name = ?)`)
		args = append(args, f.Tag)
	}

	return strings.Join(conds, " AND "), args
}

func (f templateFilter) orderBy() string {
	switch f.SortBy {
	case "forms":
		return "forms DESC"
	case "likes":
		return "likes DESC"
	default:
		return "t.created_at DESC"
	}
}

func ListTemplates(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := templateFilterFromRequest(r)
		where, args := filter.where()
		args = append(args, filter.Limit, filter.Offset)

		rows, err := app.QueryContext(r.Context(), `
			SELECT
				t.id, t.title, t.description, t.topic, t.access, t.author_id, t.created_at,
				u.id, u.name,
				(SELECT COUNT(*) FROM form f WHERE f.template_id = t.id) AS forms,
				(SELECT COUNT(*) FROM template_like l WHERE l.template_id = t.id) AS likes
			FROM template t
			INNER JOIN user u ON (u.id = t.author_id)
			WHERE `+where+`
			ORDER BY `+filter.orderBy()+`
			LIMIT ? OFFSET ?`,
			args...,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_templates", err)
			return
		}
		defer rows.Close()

		templates := []model.Template{}
		for rows.Next() {
			t := model.Template{Author: &model.UserRef{}}
			err = rows.Scan(
				&t.ID, &t.Title, &t.Description, &t.Topic, &t.Access, &t.AuthorID, &t.CreatedAt,
				&t.Author.ID, &t.Author.Name,
				&t.FormCount, &t.LikeCount,
			)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_templates.scan", err)
				return
			}
			templates = append(templates, t)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, r, "db.get_templates.rows", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"templates": templates,
		})
	}
}

func CreateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, "create a template")
		if !ok {
			return
		}

		tmpl := model.Template{}
		err := render.DecodeJSON(r.Body, &tmpl)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if tmpl.Title == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "create_template.title",
				"Title is required")
			return
		}
		if tmpl.Topic == "" {
			tmpl.Topic = "Other"
		}
		if tmpl.Access == "" {
			tmpl.Access = model.AccessPublic
		}
		if !tmpl.Access.Valid() {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "create_template.access",
				"Access must be PUBLIC or RESTRICTED")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		templateId := newId()
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO template (id, title, description, topic, access, author_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			templateId,
			tmpl.Title,
			tmpl.Description,
			tmpl.Topic,
			tmpl.Access,
			actor.ID,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_template", err)
			return
		}

		err = replaceTemplateTags(r.Context(), tx, templateId, tmpl.Tags)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_template.tags", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_template.commit", err)
			return
		}

		created, err := loadTemplate(r.Context(), app.DB, templateId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_template.reload", err)
			return
		}
		created.Tags, err = loadTemplateTags(r.Context(), app.DB, templateId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_template.reload_tags", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}

func GetTemplateById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId := chi.URLParam(r, "id")
		actor := middlewares.ActorFrom(r)

		tmpl, err := loadTemplate(r.Context(), app.DB, templateId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_template", "Template not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_template", err)
			return
		}

		if !rules.CanView(actor, tmpl) {
			httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "get_template.access",
				"You don't have access to this template")
			return
		}

		tmpl.Questions, err = loadQuestions(r.Context(), app.DB, templateId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_template.questions", err)
			return
		}
		tmpl.Tags, err = loadTemplateTags(r.Context(), app.DB, templateId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_template.tags", err)
			return
		}

		render.JSON(w, r, tmpl)
	}
}

func UpdateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, "update a template")
		if !ok {
			return
		}
		templateId := chi.URLParam(r, "id")

		existing, err := loadTemplate(r.Context(), app.DB, templateId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "update_template", "Template not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_template.load", err)
			return
		}

		if !rules.CanModify(actor, existing) {
			httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "update_template.access",
				"You don't have permission to update this template")
			return
		}

		tmpl := model.Template{}
		err = render.DecodeJSON(r.Body, &tmpl)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if tmpl.Title == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "update_template.title",
				"Title is required")
			return
		}
		if !tmpl.Access.Valid() {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "update_template.access_value",
				"Access must be PUBLIC or RESTRICTED")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(r.Context(), `
			UPDATE template
			SET
				title = ?,
				description = ?,
				topic = ?,
				access = ?
			WHERE id = ?`,
			tmpl.Title,
			tmpl.Description,
			tmpl.Topic,
			tmpl.Access,
			templateId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_template", err)
			return
		}

		// replace the whole tag set
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM template_tag
			WHERE template_id = ?`,
			templateId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_template.delete_tags", err)
			return
		}
		err = replaceTemplateTags(r.Context(), tx, templateId, tmpl.Tags)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_template.tags", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_template.commit", err)
			return
		}

		updated, err := loadTemplate(r.Context(), app.DB, templateId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_template.reload", err)
			return
		}
		updated.Tags, err = loadTemplateTags(r.Context(), app.DB, templateId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_template.reload_tags", err)
			return
		}

		render.JSON(w, r, updated)
	}
}

func DeleteTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, "delete a template")
		if !ok {
			return
		}
		templateId := chi.URLParam(r, "id")

		existing, err := loadTemplate(r.Context(), app.DB, templateId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "delete_template", "Template not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_template.load", err)
			return
		}

		if !rules.CanModify(actor, existing) {
			httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "delete_template.access",
				"You don't have permission to delete this template")
			return
		}

		// questions and forms go with it through FK cascades
		_, err = app.ExecContext(r.Context(), `
			DELETE FROM template WHERE id = ?`,
			templateId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_template", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"success": true,
		})
	}
}

func ToggleTemplateLike(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, "like a template")
		if !ok {
			return
		}
		templateId := chi.URLParam(r, "id")

		tmpl, err := loadTemplate(r.Context(), app.DB, templateId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "like_template", "Template not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.like_template.load", err)
			return
		}

		if !rules.CanView(actor, tmpl) {
			httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "like_template.access",
				"You don't have access to this template")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(r.Context(), `
			DELETE FROM template_like
			WHERE template_id = ? AND user_id = ?`,
			templateId,
			actor.ID,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.like_template.delete", err)
			return
		}
		removed, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.like_template.verify", err)
			return
		}

		liked := removed == 0
		if liked {
			_, err = tx.ExecContext(r.Context(), `
				INSERT INTO template_like (template_id, user_id)
				VALUES (?, ?)`,
				templateId,
				actor.ID,
			)
			if err != nil {
				httpx.LogInternalError(w, r, "db.like_template.insert", err)
				return
			}
		}

		var likes int
		err = tx.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM template_like
			WHERE template_id = ?`,
			templateId,
		).Scan(&likes)
		if err != nil {
			httpx.LogInternalError(w, r, "db.like_template.count", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.like_template.commit", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"liked": liked,
			"likes": likes,
		})
	}
}

// replaceTemplateTags connects the template to each named tag, creating
// missing tags on the fly. Callers clear the previous set first.
func replaceTemplateTags(ctx context.Context, tx *sql.Tx, templateId string, tags []string) error {
	seen := map[string]bool{}
	for _, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		_, err := tx.ExecContext(ctx, `
			INSERT INTO tag (id, name) VALUES (?, ?)
			ON CONFLICT (name) DO NOTHING`,
			newId(),
			name,
		)
		if err != nil {
			return err
		}

		var tagId string
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM tag WHERE name = ?`,
			name,
		).Scan(&tagId)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO template_tag (template_id, tag_id) VALUES (?, ?)`,
			templateId,
			tagId,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
