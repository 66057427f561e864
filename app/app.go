package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/formflow/formflow/config"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
}
