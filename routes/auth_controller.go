package routes

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/formflow/formflow/app"
	"github.com/formflow/formflow/httpx"
	"github.com/formflow/formflow/log"
	"github.com/formflow/formflow/model"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := registerRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if req.Name == "" || req.Email == "" || req.Password == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "register.fields",
				"Name, email and password are required")
			return
		}

		var exists bool
		err = app.QueryRowContext(r.Context(), `
			SELECT 1 FROM user WHERE email = ?`,
			req.Email,
		).Scan(&exists)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			httpx.LogInternalError(w, r, "db.register.check_email", err)
			return
		}
		if exists {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "register.duplicate",
				"Email already registered")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), app.BcryptCost)
		if err != nil {
			httpx.LogInternalError(w, r, "register.hash", err)
			return
		}

		user := model.User{
			ID:    newId(),
			Name:  req.Name,
			Email: req.Email,
			Role:  model.RoleUser,
		}
		_, err = app.ExecContext(r.Context(), `
			INSERT INTO user (id, name, email, password_hash, role)
			VALUES (?, ?, ?, ?, ?)`,
			user.ID,
			user.Name,
			user.Email,
			string(hash),
			user.Role,
		)
		if err != nil {
			// two registrations can race past the existence check
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "register.duplicate",
					"Email already registered")
				return
			}
			httpx.LogInternalError(w, r, "db.register.insert", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"user": model.UserRef{ID: user.ID, Name: user.Name},
		})
	}
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, r, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		r.Body = io.NopCloser(strings.NewReader(body.Encode()))
		r.Header.Set("content-type", "application/x-www-form-urlencoded")
		r.Header.Set("content-length", strconv.Itoa(len(body.Encode())))
		app.UserCredentials(w, r)
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("authorization")
		match := regexp.MustCompile(`(?i)^refresh\s+(.*)`).FindStringSubmatch(auth)
		if len(match) == 0 {
			httpx.LogStatus(w, r, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}
		token := match[1]

		body := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {token},
		}

		req, err := http.NewRequest("POST", "/", strings.NewReader(body.Encode()))
		if err != nil {
			httpx.LogStatus(w, r, http.StatusInternalServerError, log.DebugLevel, "refresh.new_request")
			return
		}
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
		req.Header.Set("content-length", strconv.Itoa(len(body.Encode())))

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		resp.Flush(w)
	}
}
