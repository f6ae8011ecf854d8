package auth

import "errors"

// UnauthorizedError is returned when the caller could not be identified.
type UnauthorizedError struct{}

func NewUnauthorizedError() *UnauthorizedError {
	return &UnauthorizedError{}
}

func (UnauthorizedError) Error() string {
	return "not authorized"
}

func isUnauthorized(err error) bool {
	var unauthorized *UnauthorizedError
	return errors.As(err, &unauthorized)
}

// ForbiddenError is returned when the authenticated user lacks the role required by an action.
type ForbiddenError struct {
	Role Role
}

func NewForbiddenError(role Role) *ForbiddenError {
	return &ForbiddenError{Role: role}
}

func (f ForbiddenError) Error() string {
	return "role " + string(f.Role) + " is not allowed"
}
