package routes

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/formflow/formflow/app"
	"github.com/formflow/formflow/httpx"
	"github.com/formflow/formflow/log"
	"github.com/formflow/formflow/model"
	"github.com/formflow/formflow/rules"
)

// templateForActor answers 404/401/403 and returns ok=false unless the
// template exists and the actor passes the given policy check.
func templateForActor(app app.App, w http.ResponseWriter, r *http.Request, verb string,
	check func(model.Actor, model.Template) bool, deniedMsg string) (model.Template, bool) {

	actor, ok := requireActor(w, r, verb)
	if !ok {
		return model.Template{}, false
	}

	templateId := chi.URLParam(r, "id")
	tmpl, err := loadTemplate(r.Context(), app.DB, templateId)
	if errors.Is(err, sql.ErrNoRows) {
		httpx.LogNotFound(w, r, "get_template", "Template not found")
		return model.Template{}, false
	}
	if err != nil {
		httpx.LogInternalError(w, r, "db.get_template", err)
		return model.Template{}, false
	}

	if !check(actor, tmpl) {
		httpx.LogStatusMsg(w, r, http.StatusForbidden, log.DebugLevel, "template.access", deniedMsg)
		return model.Template{}, false
	}
	return tmpl, true
}

func ListQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, ok := templateForActor(app, w, r, "view questions",
			rules.CanView, "You don't have access to this template")
		if !ok {
			return
		}

		questions, err := loadQuestions(r.Context(), app.DB, tmpl.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questions", err)
			return
		}

		render.JSON(w, r, questions)
	}
}

type newQuestionRequest struct {
	Title         string             `json:"title"`
	Description   *string            `json:"description"`
	Type          model.QuestionType `json:"type"`
	Required      bool               `json:"required"`
	ShowInSummary *bool              `json:"showInSummary"`
	Visible       *bool              `json:"visible"`
}

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, ok := templateForActor(app, w, r, "add questions",
			rules.CanModify, "You don't have permission to modify this template")
		if !ok {
			return
		}

		req := newQuestionRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if req.Title == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "create_question.title",
				"Title is required")
			return
		}
		if !req.Type.Valid() {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "create_question.type",
				"Invalid question type %q", string(req.Type))
			return
		}

		questions, err := loadQuestions(r.Context(), app.DB, tmpl.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questions", err)
			return
		}

		if !rules.CanAddQuestion(questions, req.Type) {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "create_question.quota",
				"You can only have up to %d questions of type %s", rules.MaxQuestionsPerType, req.Type)
			return
		}

		question := model.Question{
			ID:            newId(),
			TemplateID:    tmpl.ID,
			Title:         req.Title,
			Description:   req.Description,
			Type:          req.Type,
			Required:      req.Required,
			ShowInSummary: true,
			Visible:       true,
			Order:         rules.NextOrder(questions),
		}
		if req.ShowInSummary != nil {
			question.ShowInSummary = *req.ShowInSummary
		}
		if req.Visible != nil {
			question.Visible = *req.Visible
		}

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO question (id, template_id, title, description, type, required, show_in_summary, visible, ord)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			question.ID,
			question.TemplateID,
			question.Title,
			question.Description,
			question.Type,
			question.Required,
			question.ShowInSummary,
			question.Visible,
			question.Order,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_question", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, question)
	}
}

func GetQuestionById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, ok := templateForActor(app, w, r, "view a question",
			rules.CanView, "You don't have access to this template")
		if !ok {
			return
		}

		question, err := loadQuestion(app, r, tmpl.ID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_question", "Question not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_question", err)
			return
		}

		render.JSON(w, r, question)
	}
}

type updateQuestionRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Required      *bool   `json:"required"`
	ShowInSummary *bool   `json:"showInSummary"`
	Visible       *bool   `json:"visible"`
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, ok := templateForActor(app, w, r, "update a question",
			rules.CanModify, "You don't have permission to modify this template")
		if !ok {
			return
		}

		question, err := loadQuestion(app, r, tmpl.ID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "update_question", "Question not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_question.load", err)
			return
		}

		req := updateQuestionRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		// partial update: absent fields keep their value; type is immutable
		if req.Title != nil {
			question.Title = *req.Title
		}
		if req.Description != nil {
			question.Description = req.Description
		}
		if req.Required != nil {
			question.Required = *req.Required
		}
		if req.ShowInSummary != nil {
			question.ShowInSummary = *req.ShowInSummary
		}
		if req.Visible != nil {
			question.Visible = *req.Visible
		}
		if question.Title == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "update_question.title",
				"Title is required")
			return
		}

		_, err = app.ExecContext(r.Context(), `
			UPDATE question
			SET
				title = ?,
				description = ?,
				required = ?,
				show_in_summary = ?,
				visible = ?
			WHERE id = ?`,
			question.Title,
			question.Description,
			question.Required,
			question.ShowInSummary,
			question.Visible,
			question.ID,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_question", err)
			return
		}

		render.JSON(w, r, question)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, ok := templateForActor(app, w, r, "delete a question",
			rules.CanModify, "You don't have permission to modify this template")
		if !ok {
			return
		}

		question, err := loadQuestion(app, r, tmpl.ID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "delete_question", "Question not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_question.load", err)
			return
		}

		// delete plus renumbering of the survivors must land as one unit,
		// or a concurrent reader could observe a gap
		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM question WHERE id = ?`,
			question.ID,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_question", err)
			return
		}

		remaining, err := loadQuestions(r.Context(), tx, tmpl.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_question.remaining", err)
			return
		}

		err = applyOrders(r, tx, rules.Renumber(remaining))
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_question.renumber", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_question.commit", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"success": true,
		})
	}
}

func ReorderQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, ok := templateForActor(app, w, r, "reorder questions",
			rules.CanModify, "You don't have permission to modify this template")
		if !ok {
			return
		}

		body := struct {
			OrderedIds []string `json:"orderedIds"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		questions, err := loadQuestions(r.Context(), tx, tmpl.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.reorder_questions.load", err)
			return
		}

		orders, err := rules.Reorder(questions, body.OrderedIds)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "reorder_questions.ids",
				"orderedIds must be a permutation of the template's question ids: %s", err)
			return
		}

		err = applyOrders(r, tx, orders)
		if err != nil {
			httpx.LogInternalError(w, r, "db.reorder_questions", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.reorder_questions.commit", err)
			return
		}

		reordered, err := loadQuestions(r.Context(), app.DB, tmpl.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.reorder_questions.reload", err)
			return
		}

		render.JSON(w, r, reordered)
	}
}

func loadQuestion(app app.App, r *http.Request, templateId string) (model.Question, error) {
	questionId := chi.URLParam(r, "questionId")

	q := model.Question{}
	err := app.QueryRowContext(r.Context(), `
		SELECT id, template_id, title, description, type, required, show_in_summary, visible, ord
		FROM question
		WHERE id = ? AND template_id = ?`,
		questionId,
		templateId,
	).Scan(
		&q.ID, &q.TemplateID, &q.Title, &q.Description,
		&q.Type, &q.Required, &q.ShowInSummary, &q.Visible, &q.Order,
	)
	return q, err
}

func applyOrders(r *http.Request, tx *sql.Tx, orders []rules.QuestionOrder) error {
	stmt, err := tx.PrepareContext(r.Context(), `
		UPDATE question SET ord = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range orders {
		_, err = stmt.ExecContext(r.Context(), o.Order, o.ID)
		if err != nil {
			return err
		}
	}
	return nil
}
