package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const selectProfileByUserSQL = `SELECT * FROM "user_profiles" WHERE "user_id" = ? LIMIT 1`

// Profiles is the learner profile store
type Profiles interface {
	repository.Repository[*UserProfile]

	CreateEmptyTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*UserProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
}

type profiles struct {
	repository.Repository[*UserProfile]
	db  *bun.DB
	now func() time.Time
}

var _ Profiles = (*profiles)(nil)

// NewProfilesRepository returns a Profiles store keyed by user id
func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*UserProfile](db, repository.ModelHandlers[*UserProfile]{
		NewRecord: func() *UserProfile { return &UserProfile{} },
		GetID: func(p *UserProfile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.UserID
		},
		SetID: func(p *UserProfile, id uuid.UUID) {
			if p != nil {
				p.UserID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	})
	return &profiles{Repository: repo, db: db, now: time.Now}
}

func (p *profiles) CreateEmptyTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*UserProfile, error) {
	return p.Repository.CreateTx(ctx, tx, NewUserProfile(userID, p.now()))
}

func (p *profiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	res, err := p.Repository.RawTx(ctx, p.db, selectProfileByUserSQL, userID.String())
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"user_id": userID.String(),
			})
	}
	return res[0], nil
}
