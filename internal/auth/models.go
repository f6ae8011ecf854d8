package auth

import (
	"strings"

	"clinic-booking/internal/apierrors"

	"github.com/google/uuid"
)

// Role is the role of a user inside the clinic.
type Role string

const (
	AdminRole        Role = "ADMIN"
	ReceptionistRole Role = "RECEPTIONIST"
	DoctorRole       Role = "DOCTOR"
	PatientRole      Role = "PATIENT"
)

var roles = []Role{AdminRole, ReceptionistRole, DoctorRole, PatientRole}

// ParseRole resolves a role name, ignoring case.
func ParseRole(name string) (Role, bool) {
	for _, role := range roles {
		if strings.EqualFold(string(role), strings.TrimSpace(name)) {
			return role, true
		}
	}
	return "", false
}

// Allow checks if the user has one of the given roles.
func Allow(user User, allowed ...Role) error {
	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}
	return NewForbiddenError(user.Role)
}

// Valid checks if the role is one of the known roles.
func (r Role) Valid() bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsStaff checks if the role belongs to the clinic staff.
func (r Role) IsStaff() bool {
	return r == AdminRole || r == ReceptionistRole || r == DoctorRole
}

// Credentials are the login data of a user.
type Credentials struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Validate checks that both the email and the password were given.
func (c Credentials) Validate() error {
	return requireFields(map[string]string{"email": c.Email, "password": c.Password}, "email", "password")
}

// refreshGrantType is the only grant accepted by the token refresh.
const refreshGrantType = "refresh_token"

// Tokens are the pair issued on login. On refresh, they also carry the grant type.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type,omitempty"`
}

// Validate checks the tokens of a refresh request.
func (t Tokens) Validate() error {
	fields := map[string]string{
		"access_token":  t.AccessToken,
		"refresh_token": t.RefreshToken,
		"grant_type":    t.GrantType,
	}
	if err := requireFields(fields, "access_token", "refresh_token", "grant_type"); err != nil {
		return err
	}
	if t.GrantType != refreshGrantType {
		return apierrors.NewValidationError("grant_type", "invalid")
	}
	return nil
}

// requireFields reports the first of the named fields that is empty.
func requireFields(values map[string]string, names ...string) error {
	for _, name := range names {
		if strings.TrimSpace(values[name]) == "" {
			return apierrors.NewValidationError(name, "required")
		}
	}
	return nil
}

// User is a clinic user. Doctors are users with the DoctorRole.
type User struct {
	ID       int64     `json:"-" dbfield:"id"`
	UUID     uuid.UUID `json:"uuid" dbfield:"uuid"`
	Email    string    `json:"email" dbfield:"email"`
	Password string    `json:"-" dbfield:"password"`
	Role     Role      `json:"role" dbfield:"role"`
}
