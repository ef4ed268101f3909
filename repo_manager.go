package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Roles() Roles
	Profiles() Profiles
	Sessions() Sessions
}

type mngr struct {
	db       *bun.DB
	users    Users
	roles    Roles
	profiles Profiles
	sessions Sessions
}

// NewRepositoryManager wires every repository to db
func NewRepositoryManager(db *bun.DB, opts ...UsersOption) RepositoryManager {
	return &mngr{
		db:       db,
		users:    NewUsersRepository(db, opts...),
		roles:    NewRolesRepository(db),
		profiles: NewProfilesRepository(db),
		sessions: NewSessionsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}
	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}
	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}
	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Roles() Roles {
	return m.roles
}

func (m mngr) Profiles() Profiles {
	return m.profiles
}

func (m mngr) Sessions() Sessions {
	return m.sessions
}

// isNotFound covers both the repository sentinel and a bare bun scan miss
func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}
