package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/formflow/formflow/log"
)

// ErrorBody is the uniform error envelope of the API.
type ErrorBody struct {
	Error string `json:"error"`
}

// Will log an error, and send a 500 response with a generic message.
// The underlying error stays server-side.
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorBody{http.StatusText(http.StatusInternalServerError)})
}

// Will log a debug message, and send a 404 response with the given message.
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, msg string) {
	log.Debugf("%s: not found", code)
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorBody{msg})
}

// Will log an error code at the given level, and send
// an HTTP response with the status's default text as message.
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string) {
	log.Log(level, code)
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{http.StatusText(status)})
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message.
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{errMsg})
}
