package security

import "golang.org/x/crypto/bcrypt"

// bcryptCost stays at the library default; bump it here if password
// checks get too cheap for the hardware this runs on.
const bcryptCost = bcrypt.DefaultCost

// HashPassword hashes a plaintext password for storage on the user record.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a stored hash against a signin attempt.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
