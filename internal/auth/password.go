package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the username does not exist, so an
// unknown user costs the same bcrypt work as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("disha-dummy-password"), bcrypt.DefaultCost)

// HashPassword returns a salted bcrypt hash of pwd.
func HashPassword(pwd string, cost int) ([]byte, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword reports whether pwd matches hash. A nil or empty hash is
// checked against dummyHash and never matches.
func CheckPassword(hash []byte, pwd string) bool {
	if len(hash) == 0 {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pwd))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pwd)) == nil
}
