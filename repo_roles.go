package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the role store. Role rows are seeded by the migrations and keyed
// by name; user_roles links are written with plain bun queries.
type Roles interface {
	repository.Repository[*Role]

	GetByName(ctx context.Context, name string) (*Role, error)
	GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]string, string, error)
	AssignTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, roleID int64, primary bool) error
	AssignRole(ctx context.Context, userID uuid.UUID, roleName string, primary bool) error
}

type roles struct {
	repository.Repository[*Role]
	db  *bun.DB
	now func() time.Time
}

var _ Roles = (*roles)(nil)

// NewRolesRepository returns a Roles store. Role ids are integers, so the
// uuid handlers are inert and lookups go through the name identifier.
func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(*Role) uuid.UUID {
			return uuid.Nil
		},
		SetID: func(*Role, uuid.UUID) {},
		GetIdentifier: func() string {
			return "name"
		},
	})
	return &roles{Repository: repo, db: db, now: time.Now}
}

func (r *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.GetByNameTx(ctx, r.db, name)
}

// GetByNameTx returns nil when no role has that name
func (r *roles) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	record, err := r.Repository.GetByIdentifierTx(ctx, tx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// ListForUser returns role names in assignment order and the primary role
func (r *roles) ListForUser(ctx context.Context, userID uuid.UUID) ([]string, string, error) {
	rows, err := listRoleRows(ctx, r.db, userID)
	if err != nil {
		return nil, "", err
	}
	names := make([]string, 0, len(rows))
	primary := ""
	for _, row := range rows {
		names = append(names, row.Name)
		if row.IsPrimary && primary == "" {
			primary = row.Name
		}
	}
	return names, primary, nil
}

// AssignTx links a role to a user. A primary assignment demotes every
// other role of the user first, so at most one row stays primary. A non
// primary assignment never demotes an existing row.
func (r *roles) AssignTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, roleID int64, primary bool) error {
	record := &UserRole{
		UserID:     userID,
		RoleID:     roleID,
		IsPrimary:  primary,
		AssignedAt: r.now(),
	}

	if !primary {
		_, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (user_id, role_id) DO NOTHING").
			Exec(ctx)
		return err
	}

	_, err := tx.NewUpdate().
		Model((*UserRole)(nil)).
		Set("is_primary = ?", false).
		Where("user_id = ?", userID).
		Where("role_id <> ?", roleID).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = tx.NewInsert().
		Model(record).
		On("CONFLICT (user_id, role_id) DO UPDATE").
		Set("is_primary = EXCLUDED.is_primary").
		Exec(ctx)
	return err
}

// AssignRole grants roleName to an active user in its own transaction
func (r *roles) AssignRole(ctx context.Context, userID uuid.UUID, roleName string, primary bool) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*User)(nil)).
			Where("?TableAlias.id = ?", userID).
			Where("?TableAlias.is_active = ?", true).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		role, err := r.GetByNameTx(ctx, tx, roleName)
		if err != nil {
			return err
		}
		if role == nil {
			return withMetadata(ErrUnknownRole, map[string]any{"role": roleName})
		}

		return r.AssignTx(ctx, tx, userID, role.ID, primary)
	})
}
