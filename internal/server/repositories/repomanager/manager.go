package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/files"
)

// RepositoryManager hands out repositories bound to a DBTX, so a service can
// run several repository calls on one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
}
