package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/voicefeed/internal/dbx"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/memos"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Memos(db dbx.DBTX) memos.Repository
}
