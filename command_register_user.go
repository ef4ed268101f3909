package auth

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterUserMessage carries an already validated signup. Password is
// the bcrypt hash, never the clear text.
type RegisterUserMessage struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
	UseHashid    bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisteredUser is the outcome of a registration
type RegisteredUser struct {
	User *User
	Role *Role
}

// RegisterUserHandler creates the user, its primary role link and an
// empty profile in one transaction. Any failure leaves no rows behind.
type RegisterUserHandler struct {
	repo    RepositoryManager
	timeout time.Duration
}

// NewRegisterUserHandler returns a handler bounded by timeout
func NewRegisterUserHandler(repo RepositoryManager, timeout time.Duration) *RegisterUserHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RegisterUserHandler{repo: repo, timeout: timeout}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*RegisteredUser, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*RegisteredUser, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	roleName := event.Role
	if roleName == "" {
		roleName = DefaultRole
	}

	out := &RegisteredUser{}
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &User{
			Username:     event.Username,
			Email:        event.Email,
			Name:         event.Name,
			PasswordHash: event.PasswordHash,
			IsActive:     true,
		}
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		created, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}

		role, err := h.repo.Roles().GetByNameTx(ctx, tx, roleName)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve role")
		}
		if role == nil {
			return withMetadata(ErrUnknownRole, map[string]any{"role": roleName})
		}

		if err := h.repo.Roles().AssignTx(ctx, tx, created.ID, role.ID, true); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to assign primary role")
		}

		if _, err := h.repo.Profiles().CreateEmptyTx(ctx, tx, created.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user profile")
		}

		out.User = created
		out.Role = role
		return nil
	})

	if err != nil {
		if IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrStoreTimeout
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		if IsUniqueViolation(err) {
			return nil, ErrUserExists
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return out, nil
}
