/*
Package passwd abstracts password hashing behind a small interface so the
directory store never sees plaintext handling details.

Two implementations exist: Plain, which stores the password as-is and matches
the legacy deployments this server replaces, and Bcrypt for installations that
opt into real hashing via configuration.
*/
package passwd

import "golang.org/x/crypto/bcrypt"

// Hasher turns a plaintext password into its stored form and verifies
// candidates against it.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Plain is the identity hasher. Interoperates with stores written by the
// legacy server, which never hashed.
type Plain struct{}

func (Plain) Hash(password string) (string, error) { return password, nil }

func (Plain) Compare(hash, password string) bool { return hash == password }

// Bcrypt hashes with bcrypt at the default cost.
type Bcrypt struct{}

func (Bcrypt) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (Bcrypt) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ForMode selects the hasher for a configuration value ("bcrypt" or "plain").
func ForMode(mode string) Hasher {
	if mode == "bcrypt" {
		return Bcrypt{}
	}
	return Plain{}
}
