package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the user store. Lookups only see active users unless stated
// otherwise and return a nil record, not an error, when nothing matches.
type Users interface {
	repository.Repository[*User]

	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	ExistsByEmailOrUsernameTx(ctx context.Context, tx bun.IDB, email, username string) (bool, error)

	GetActiveByEmail(ctx context.Context, email string) (*User, error)
	GetActiveByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetActiveWithRolesByEmail(ctx context.Context, email string) (*UserWithRoles, error)
	GetActiveWithRolesByID(ctx context.Context, id uuid.UUID) (*UserWithRoles, error)
	GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error)

	TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error
	UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// UsersOption configures the users repository
type UsersOption func(*users)

// WithUsersClock replaces the clock used for timestamps
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

// NewUsersRepository returns a Users store on top of go-repository-bun
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}
	return repoUsers
}

type userRoleRow struct {
	Name      string `bun:"name"`
	IsPrimary bool   `bun:"is_primary"`
}

func activeOnly() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.is_active = ?", true)
	}
}

func (a *users) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	return a.ExistsByEmailOrUsernameTx(ctx, a.db, email, username)
}

func (a *users) ExistsByEmailOrUsernameTx(ctx context.Context, tx bun.IDB, email, username string) (bool, error) {
	return tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", email).
		WhereOr("?TableAlias.username = ?", username).
		Exists(ctx)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

// CreateTx fills the user defaults and inserts it. A unique violation
// surfaces as ErrUserExists.
func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	if record == nil {
		return nil, goerrors.New("user record is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}
	a.prepareDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	if created == nil {
		return nil, ErrNoRowReturned
	}
	return created, nil
}

func (a *users) prepareDefaults(record *User) {
	now := a.now()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Locale == "" {
		record.Locale = "en"
	}
	if record.Timezone == "" {
		record.Timezone = "UTC"
	}
}

func (a *users) GetActiveByEmail(ctx context.Context, email string) (*User, error) {
	return a.getActiveTx(ctx, a.db, email)
}

func (a *users) GetActiveByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.getActiveTx(ctx, a.db, id.String())
}

func (a *users) getActiveTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	record, err := a.Repository.GetByIdentifierTx(ctx, tx, identifier, activeOnly())
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (a *users) GetActiveWithRolesByEmail(ctx context.Context, email string) (*UserWithRoles, error) {
	user, err := a.GetActiveByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}
	return a.withRoles(ctx, a.db, user)
}

func (a *users) GetActiveWithRolesByID(ctx context.Context, id uuid.UUID) (*UserWithRoles, error) {
	user, err := a.GetActiveByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	return a.withRoles(ctx, a.db, user)
}

func (a *users) withRoles(ctx context.Context, tx bun.IDB, user *User) (*UserWithRoles, error) {
	rows, err := listRoleRows(ctx, tx, user.ID)
	if err != nil {
		return nil, err
	}

	out := &UserWithRoles{
		User:  user,
		Roles: make([]string, 0, len(rows)),
	}
	for _, row := range rows {
		out.Roles = append(out.Roles, row.Name)
		if row.IsPrimary && out.PrimaryRole == "" {
			out.PrimaryRole = row.Name
		}
	}
	return out, nil
}

func listRoleRows(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]userRoleRow, error) {
	var rows []userRoleRow
	err := tx.NewSelect().
		Model((*UserRole)(nil)).
		ColumnExpr("r.name AS name").
		ColumnExpr("?TableAlias.is_primary AS is_primary").
		Join("JOIN roles AS r ON r.id = ?TableAlias.role_id").
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.assigned_at ASC, r.id ASC").
		Scan(ctx, &rows)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	return rows, nil
}

// GetPasswordHash returns "" when the user is missing or inactive
func (a *users) GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error) {
	user, err := a.GetActiveByID(ctx, id)
	if err != nil || user == nil {
		return "", err
	}
	return user.PasswordHash, nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("last_login = ?", a.now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

// UpdateProfile applies the non nil fields of in to an active user
func (a *users) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*User, error) {
	var updated *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*User)(nil)).
			Set("name = COALESCE(?, name)", in.Name).
			Set("bio = COALESCE(?, bio)", in.Bio).
			Set("timezone = COALESCE(?, timezone)", in.Timezone).
			Set("locale = COALESCE(?, locale)", in.Locale).
			Set("updated_at = ?", a.now()).
			Where("?TableAlias.id = ?", id).
			Where("?TableAlias.is_active = ?", true).
			Exec(ctx)
		if err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrUserNotFound
		}

		updated, err = a.getActiveTx(ctx, tx, id.String())
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
