package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"github.com/formflow/formflow/app"
	"github.com/formflow/formflow/httpx"
	"github.com/formflow/formflow/model"
)

func ListTags(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
			limit = n
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT g.id, g.name, COUNT(tt.template_id) AS templates
			FROM tag g
			LEFT OUTER JOIN template_tag tt ON (tt.tag_id = g.id)
			GROUP BY g.id, g.name
			ORDER BY templates DESC, g.name ASC
			LIMIT ?`,
			limit,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_tags", err)
			return
		}
		defer rows.Close()

		tags := []model.Tag{}
		for rows.Next() {
			t := model.Tag{}
			err = rows.Scan(&t.ID, &t.Name, &t.Count)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_tags.scan", err)
				return
			}
			tags = append(tags, t)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, r, "db.get_tags.rows", err)
			return
		}

		render.JSON(w, r, tags)
	}
}
