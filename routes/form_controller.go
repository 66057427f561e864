package routes

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/formflow/formflow/app"
	"github.com/formflow/formflow/httpx"
	"github.com/formflow/formflow/log"
	"github.com/formflow/formflow/model"
	"github.com/formflow/formflow/rules"
)

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, "access forms")
		if !ok {
			return
		}

		limit := 10
		if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
			limit = n
		}
		offset := 0
		if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n > 0 {
			offset = n
		}

		// the caller sees forms they submitted plus forms submitted
		// against their own templates
		query := `
			SELECT
				f.id, f.template_id, f.submitter_id, f.created_at, f.updated_at,
				t.id, t.title, t.author_id
			FROM form f
			INNER JOIN template t ON (t.id = f.template_id)
			WHERE (f.submitter_id = ? OR t.author_id = ?)`
		args := []any{actor.ID, actor.ID}

		if templateId := r.URL.Query().Get("templateId"); templateId != "" {
			query += " AND f.template_id = ?"
			args = append(args, templateId)
		}
		query += " ORDER BY f.created_at DESC LIMIT ? OFFSET ?"
		args = append(args, limit, offset)

		rows, err := app.QueryContext(r.Context(), query, args...)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_forms", err)
			return
		}
		defer rows.Close()

		forms := []model.Form{}
		for rows.Next() {
			f := model.Form{Template: &model.TemplateRef{}, Answers: []model.Answer{}}
			err = rows.Scan(
				&f.ID, &f.TemplateID, &f.SubmitterID, &f.CreatedAt, &f.UpdatedAt,
				&f.Template.ID, &f.Template.Title, &f.Template.AuthorID,
			)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_forms.scan", err)
				return
			}
			forms = append(forms, f)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, r, "db.get_forms.rows", err)
			return
		}

		err = attachAnswers(r.Context(), app, forms)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_forms.answers", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

type submitFormRequest struct {
	TemplateID string         `json:"templateId"`
	Answers    []model.Answer `json:"answers"`
}

func SubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, "submit a form")
		if !ok {
			return
		}

		req := submitFormRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		tmpl, err := loadTemplate(r.Context(), app.DB, req.TemplateID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "submit_form.template", "Template not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.submit_form.template", err)
			return
		}

		if !rules.CanView(actor, tmpl) {
			httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "submit_form.access",
				"You don't have access to this template")
			return
		}

		questions, err := loadQuestions(r.Context(), app.DB, tmpl.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.submit_form.questions", err)
			return
		}

		known := map[string]bool{}
		for _, q := range questions {
			known[q.ID] = true
		}
		for _, a := range req.Answers {
			if !known[a.QuestionID] {
				httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "submit_form.question",
					"Unknown question %q", a.QuestionID)
				return
			}
		}

		missing := rules.MissingRequired(questions, req.Answers)
		if len(missing) > 0 {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "submit_form.required",
				"Please fill in all required fields: %s", strings.Join(missing, ", "))
			return
		}

		// form and answers land as one unit
		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		form := model.Form{
			ID:          newId(),
			TemplateID:  tmpl.ID,
			SubmitterID: actor.ID,
			Answers:     []model.Answer{},
			CreatedAt:   time.Now(),
		}
		form.UpdatedAt = form.CreatedAt

		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO form (id, template_id, submitter_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			form.ID,
			form.TemplateID,
			form.SubmitterID,
			form.CreatedAt,
			form.UpdatedAt,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_form", err)
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO answer (id, form_id, question_id, value)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_form.answers.prepare", err)
			return
		}
		defer stmt.Close()

		for _, a := range req.Answers {
			a.ID = newId()
			_, err = stmt.ExecContext(r.Context(), a.ID, form.ID, a.QuestionID, a.Value)
			if err != nil {
				httpx.LogInternalError(w, r, "db.insert_form.answers.insert", err)
				return
			}
			form.Answers = append(form.Answers, a)
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_form.commit", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, form)
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, "view a form")
		if !ok {
			return
		}
		formId := chi.URLParam(r, "id")

		form := model.Form{
			Template:  &model.TemplateRef{},
			Submitter: &model.UserRef{},
			Answers:   []model.Answer{},
		}
		err := app.QueryRowContext(r.Context(), `
			SELECT
				f.id, f.template_id, f.submitter_id, f.created_at, f.updated_at,
				t.id, t.title, t.author_id,
				u.id, u.name
			FROM form f
			INNER JOIN template t ON (t.id = f.template_id)
			INNER JOIN user u ON (u.id = f.submitter_id)
			WHERE f.id = ?`,
			formId,
		).Scan(
			&form.ID, &form.TemplateID, &form.SubmitterID, &form.CreatedAt, &form.UpdatedAt,
			&form.Template.ID, &form.Template.Title, &form.Template.AuthorID,
			&form.Submitter.ID, &form.Submitter.Name,
		)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_form", "Form not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_form", err)
			return
		}

		if !rules.CanViewForm(actor, form) {
			httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "get_form.access",
				"You don't have permission to view this form")
			return
		}

		forms := []model.Form{form}
		err = attachAnswers(r.Context(), app, forms)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_form.answers", err)
			return
		}

		render.JSON(w, r, forms[0])
	}
}

// attachAnswers loads the answers of all given forms in one query, each
// joined with its question, and distributes them in place.
func attachAnswers(ctx context.Context, app app.App, forms []model.Form) error {
	if len(forms) == 0 {
		return nil
	}

	byId := map[string]*model.Form{}
	placeholders := make([]string, len(forms))
	args := make([]any, len(forms))
	for i := range forms {
		byId[forms[i].ID] = &forms[i]
		placeholders[i] = "?"
		args[i] = forms[i].ID
	}

	rows, err := app.QueryContext(ctx, `
		SELECT
			a.form_id, a.id, a.question_id, a.value,
			q.id, q.template_id, q.title, q.description, q.type, q.required, q.show_in_summary, q.visible, q.ord
		FROM answer a
		INNER JOIN question q ON (q.id = a.question_id)
		WHERE a.form_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY q.ord ASC`,
		args...,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var formId string
		a := model.Answer{Question: &model.Question{}}
		err = rows.Scan(
			&formId, &a.ID, &a.QuestionID, &a.Value,
			&a.Question.ID, &a.Question.TemplateID, &a.Question.Title, &a.Question.Description,
			&a.Question.Type, &a.Question.Required, &a.Question.ShowInSummary, &a.Question.Visible, &a.Question.Order,
		)
		if err != nil {
			return err
		}
		if form, ok := byId[formId]; ok {
			form.Answers = append(form.Answers, a)
		}
	}
	return rows.Err()
}
