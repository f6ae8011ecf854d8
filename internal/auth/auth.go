// Package auth contains handlers, services and models used to manage authentication
// and authorization of clinic users.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for new users.
const MinPasswordLength = 4

var errPasswordTooShort = errors.New("password is too short")

// EncryptPassword encrypts a given string.
func EncryptPassword(pass string) (string, error) {
	if len(pass) < MinPasswordLength {
		return "", errPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePasswords compares a given encrypted password and a string, in order to check
// their equivalences.
func ComparePasswords(hashedPass, plainPass string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPass), []byte(plainPass))
	return err == nil
}
