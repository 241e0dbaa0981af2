package utils

import "golang.org/x/crypto/bcrypt"

const BcryptCost = 12

// HashKey hashes the shared admin key once at startup so the plain value
// never sits in memory longer than configuration loading.
func HashKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	return string(bytes), err
}

func CheckKeyHash(key, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}
