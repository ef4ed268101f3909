//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// race builds run much slower; keep hashing cheap enough for test timeouts
	return bcrypt.MinCost
}
