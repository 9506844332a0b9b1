package security

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash stored in users.password.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// DummyHash is a hash of a random secret at the production cost. Comparing against it
// when no account matches keeps failed logins as slow as wrong passwords.
var DummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword(uuid.NewString())
	if err != nil {
		panic(err)
	}
	return hash
})
