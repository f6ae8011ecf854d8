package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func authenticatedAs(role Role) mockAuthorizer {
	return mockAuthorizer{
		mockGetAuthenticatedUser: func(ctx context.Context) (User, error) {
			return User{Email: "user@clinic.com", Role: role}, nil
		},
	}
}

func TestAllowedRole(t *testing.T) {
	anonymous := mockAuthorizer{
		mockGetAuthenticatedUser: func(ctx context.Context) (User, error) {
			return User{}, NewUnauthorizedError()
		},
	}
	tests := []struct {
		name       string
		authorizer Authorizer
		roles      []Role
		want       int
	}{
		{name: "should let a patient through a patient route", authorizer: authenticatedAs(PatientRole), roles: []Role{PatientRole}, want: http.StatusOK},
		{name: "should let the receptionist through a staff route", authorizer: authenticatedAs(ReceptionistRole), roles: []Role{AdminRole, ReceptionistRole}, want: http.StatusOK},
		{name: "should refuse a doctor on a front desk route", authorizer: authenticatedAs(DoctorRole), roles: []Role{AdminRole, ReceptionistRole}, want: http.StatusForbidden},
		{name: "should refuse an anonymous request", authorizer: anonymous, roles: []Role{AdminRole}, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			router.Use(AllowedRole(tt.authorizer, tt.roles...))
			router.Get("/", func(w http.ResponseWriter, r *http.Request) {})

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.want, recorder.Code)
		})
	}
}

func TestJwtValidator(t *testing.T) {
	doctor := User{Email: "doctor@clinic.com", Role: DoctorRole}
	tests := []struct {
		name      string
		header    string
		validate  func(ctx context.Context, token string) (*User, error)
		want      int
		wantToken string
	}{
		{
			name:   "should authenticate the request",
			header: "Bearer testing",
			validate: func(ctx context.Context, token string) (*User, error) {
				return &doctor, nil
			},
			want:      http.StatusOK,
			wantToken: "testing",
		},
		{
			name:   "should refuse a basic authorization header",
			header: "Basic dGVzdDp0ZXN0",
			want:   http.StatusUnauthorized,
		},
		{
			name:   "should refuse an empty bearer token",
			header: "Bearer ",
			want:   http.StatusUnauthorized,
		},
		{
			name:   "should refuse an invalid token",
			header: "Bearer testing",
			validate: func(ctx context.Context, token string) (*User, error) {
				return nil, NewUnauthorizedError()
			},
			want:      http.StatusUnauthorized,
			wantToken: "testing",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotToken string
			var gotUser User
			authorizer := mockAuthorizer{
				mockValidateToken: func(ctx context.Context, token string) (*User, error) {
					gotToken = token
					return tt.validate(ctx, token)
				},
			}
			router := chi.NewRouter()
			router.Use(JwtValidator(authorizer))
			router.Get("/", func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = UserFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)

			assert.Equal(t, tt.want, recorder.Code)
			assert.Equal(t, tt.wantToken, gotToken)
			if tt.want == http.StatusOK {
				assert.Equal(t, doctor, gotUser)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	user := User{Email: "reception@clinic.com", Role: ReceptionistRole}
	got, ok := UserFromContext(ContextWithUser(context.Background(), user))
	assert.True(t, ok)
	assert.Equal(t, user, got)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		name   string
		want   Role
		wantOk bool
	}{
		{name: "ADMIN", want: AdminRole, wantOk: true},
		{name: "receptionist", want: ReceptionistRole, wantOk: true},
		{name: " Doctor ", want: DoctorRole, wantOk: true},
		{name: "nurse", wantOk: false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.name)
		assert.Equal(t, tt.wantOk, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
	assert.False(t, Role("doctor").Valid())
	assert.True(t, ReceptionistRole.IsStaff())
	assert.False(t, PatientRole.IsStaff())
}
