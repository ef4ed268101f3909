package auth_test

import (
	"testing"

	auth "github.com/axioquan/go-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHasUserUUID(t *testing.T) {
	t.Run("uuid subject", func(t *testing.T) {
		session := &auth.Session{
			UserID: uuid.NewString(),
		}

		assert.True(t, auth.HasUserUUID(session))
	})

	t.Run("opaque subject", func(t *testing.T) {
		session := &auth.Session{
			UserID: "user-42",
		}

		assert.False(t, auth.HasUserUUID(session))
	})

	t.Run("nil session", func(t *testing.T) {
		assert.False(t, auth.HasUserUUID(nil))
	})
}
