package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions is the server side session table
type Sessions interface {
	repository.Repository[*SessionRecord]

	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type sessions struct {
	repository.Repository[*SessionRecord]
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

// NewSessionsRepository returns a Sessions store
func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*SessionRecord](db, repository.ModelHandlers[*SessionRecord]{
		NewRecord: func() *SessionRecord { return &SessionRecord{} },
		GetID: func(s *SessionRecord) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *SessionRecord, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})
	return &sessions{Repository: repo, db: db}
}

// DeleteByUser removes every session row of userID and returns how many went
func (s *sessions) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
