// Package security holds credential hashing for account passwords.
package security

import "golang.org/x/crypto/bcrypt"

// bcrypt cost 12 lands around 250ms per hash on current hardware, which
// is the budget we accept on signup and login.
const hashCost = 12

// HashPassword hashes a plaintext password with bcrypt. bcrypt reads at
// most 72 bytes; anything longer is silently truncated by the algorithm,
// which is acceptable for human-chosen passwords.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a stored bcrypt hash against a plaintext
// candidate. The cost is read from the hash itself, so old hashes keep
// verifying after hashCost changes.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
