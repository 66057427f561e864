package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/formflow/formflow/app"
	"github.com/formflow/formflow/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()
	api.Use(middlewares.Actor(app.TokenSecret))

	api.Post("/auth/register", Register(app))
	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	// CRUD templates
	api.Get("/templates", ListTemplates(app))
	api.Post("/templates", CreateTemplate(app))
	api.Get("/templates/{id}", GetTemplateById(app))
	api.Put("/templates/{id}", UpdateTemplate(app))
	api.Delete("/templates/{id}", DeleteTemplate(app))
	api.Post("/templates/{id}/like", ToggleTemplateLike(app))

	// questions of a template
	api.Get("/templates/{id}/questions", ListQuestions(app))
	api.Post("/templates/{id}/questions", CreateQuestion(app))
	api.Put("/templates/{id}/questions/reorder", ReorderQuestions(app))
	api.Get("/templates/{id}/questions/{questionId}", GetQuestionById(app))
	api.Put("/templates/{id}/questions/{questionId}", UpdateQuestion(app))
	api.Delete("/templates/{id}/questions/{questionId}", DeleteQuestion(app))

	// form submissions
	api.Get("/forms", ListForms(app))
	api.Post("/forms", SubmitForm(app))
	api.Get("/forms/{id}", GetFormById(app))

	api.Get("/tags", ListTags(app))

	return api
}
