package appointment

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"clinic-booking/internal/auth"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/logging"
	"clinic-booking/internal/mock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var logger = logging.New(io.Discard, "error")

type mockAuthorizer struct {
	mockValidateToken        func(ctx context.Context, token string) (*auth.User, error)
	mockRefreshTokens        func(ctx context.Context, tokens auth.Tokens) (*auth.Tokens, error)
	mockGetAuthenticatedUser func(ctx context.Context) (auth.User, error)
}

func (m mockAuthorizer) ValidateToken(ctx context.Context, token string) (*auth.User, error) {
	return m.mockValidateToken(ctx, token)
}

func (m mockAuthorizer) RefreshTokens(ctx context.Context, tokens auth.Tokens) (*auth.Tokens, error) {
	return m.mockRefreshTokens(ctx, tokens)
}

func (m mockAuthorizer) GetAuthenticatedUser(ctx context.Context) (auth.User, error) {
	return m.mockGetAuthenticatedUser(ctx)
}

func authorizerFor(user auth.User) mockAuthorizer {
	return mockAuthorizer{
		mockValidateToken: func(ctx context.Context, token string) (*auth.User, error) {
			return &user, nil
		},
		mockGetAuthenticatedUser: func(ctx context.Context) (auth.User, error) {
			return user, nil
		},
	}
}

func TestAppointmentRoutes(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	appointmentPath := fmt.Sprintf("/api/v1/appointments/%s", appointmentUUID)
	clinicPath := fmt.Sprintf("/api/v1/appointments/clinic/%s", clinicUUID)
	type args struct {
		user          auth.User
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		method        string
		path          string
		body          interface{}
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "should book an appointment",
			args: args{
				user:   userWith(auth.PatientRole, patientUUID),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findClinicByUUIDQuery, 1, clinicRows()),
					mock.WithQueryResult(findDoctorByUUIDQuery, 1, doctorRows()),
					mock.WithQueryResult(findPatientByUUIDQuery, 1, patientRows()),
					mock.WithQueryResult(findSlotOccupantQuery, 4, sqlmock.NewRows(appointmentColumns)),
					mock.WithExecResult(insertAppointmentQuery, 15, sqlmock.NewResult(1, 1)),
				},
				method: http.MethodPost,
				path:   "/api/v1/appointments",
				body:   bookingRequest(),
			},
			want: http.StatusCreated,
		},
		{
			name: "should not book a taken slot",
			args: args{
				user:   userWith(auth.ReceptionistRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findClinicByUUIDQuery, 1, clinicRows()),
					mock.WithQueryResult(findDoctorByUUIDQuery, 1, doctorRows()),
					mock.WithQueryResult(findPatientByUUIDQuery, 1, patientRows()),
					mock.WithQueryResult(findSlotOccupantQuery, 4, appointmentRows(StatusBooked)),
				},
				method: http.MethodPost,
				path:   "/api/v1/appointments",
				body:   bookingRequest(),
			},
			want: http.StatusConflict,
		},
		{
			name: "should not book a malformed payload",
			args: args{
				user:   userWith(auth.ReceptionistRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				method: http.MethodPost,
				path:   "/api/v1/appointments",
				body:   "not an appointment",
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should not book due to a database error",
			args: args{
				user:   userWith(auth.ReceptionistRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryError(findClinicByUUIDQuery, 1, sql.ErrConnDone),
				},
				method: http.MethodPost,
				path:   "/api/v1/appointments",
				body:   bookingRequest(),
			},
			want: http.StatusInternalServerError,
		},
		{
			name: "should find an appointment",
			args: args{
				user:   userWith(auth.PatientRole, patientUUID),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findAppointmentByUUIDQuery, 1, appointmentRows(StatusBooked)),
				},
				method: http.MethodGet,
				path:   appointmentPath,
			},
			want: http.StatusOK,
		},
		{
			name: "should not find an appointment with an invalid identifier",
			args: args{
				user:   userWith(auth.PatientRole, patientUUID),
				dbConn: mock.MustCreateConnectionMock(),
				method: http.MethodGet,
				path:   "/api/v1/appointments/not-a-uuid",
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should let the assigned doctor start the appointment",
			args: args{
				user:   userWith(auth.DoctorRole, doctorUUID),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findAppointmentByUUIDQuery, 1, appointmentRows(StatusBooked)),
					mock.WithExecResult(transitionStatusQuery, 5, sqlmock.NewResult(0, 1)),
				},
				method: http.MethodPut,
				path:   appointmentPath + "/assign-doctor",
			},
			want: http.StatusOK,
		},
		{
			name: "should not let another doctor start the appointment",
			args: args{
				user:   userWith(auth.DoctorRole, otherDoctorUUID),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findAppointmentByUUIDQuery, 1, appointmentRows(StatusBooked)),
				},
				method: http.MethodPut,
				path:   appointmentPath + "/assign-doctor",
			},
			want: http.StatusForbidden,
		},
		{
			name: "should not let a patient reach the staff routes",
			args: args{
				user:   userWith(auth.PatientRole, patientUUID),
				dbConn: mock.MustCreateConnectionMock(),
				method: http.MethodPost,
				path:   "/api/v1/appointments/cancel",
				body:   CancelRequest{UUID: appointmentUUID, Reason: "not coming"},
			},
			want: http.StatusForbidden,
		},
		{
			name: "should cancel a booked appointment",
			args: args{
				user:   userWith(auth.ReceptionistRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findAppointmentByUUIDQuery, 1, appointmentRows(StatusBooked)),
					mock.WithExecResult(transitionStatusQuery, 5, sqlmock.NewResult(0, 1)),
				},
				method: http.MethodPost,
				path:   "/api/v1/appointments/cancel",
				body:   CancelRequest{UUID: appointmentUUID, Reason: "not coming"},
			},
			want: http.StatusOK,
		},
		{
			name: "should not cancel a no-show appointment",
			args: args{
				user:   userWith(auth.AdminRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findAppointmentByUUIDQuery, 1, appointmentRows(StatusNoShow)),
				},
				method: http.MethodPost,
				path:   "/api/v1/appointments/cancel",
				body:   CancelRequest{UUID: appointmentUUID, Reason: "not coming"},
			},
			want: http.StatusForbidden,
		},
		{
			name: "should override the status",
			args: args{
				user:   userWith(auth.DoctorRole, doctorUUID),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findAppointmentByUUIDQuery, 1, appointmentRows(StatusBooked)),
					mock.WithExecResult(forceStatusQuery, 3, sqlmock.NewResult(0, 1)),
				},
				method: http.MethodPost,
				path:   "/api/v1/appointments/status-update",
				body:   StatusUpdateRequest{UUID: appointmentUUID, Status: StatusNoShow},
			},
			want: http.StatusOK,
		},
		{
			name: "should not override with an unknown status",
			args: args{
				user:   userWith(auth.AdminRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				method: http.MethodPost,
				path:   "/api/v1/appointments/status-update",
				body:   StatusUpdateRequest{UUID: appointmentUUID, Status: "Archived"},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should mark the patient present",
			args: args{
				user:   userWith(auth.ReceptionistRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findAppointmentByUUIDQuery, 1, appointmentRows(StatusBooked)),
					mock.WithExecResult(markArrivalQuery, 2, sqlmock.NewResult(0, 1)),
				},
				method: http.MethodPut,
				path:   appointmentPath + "/mark-present",
			},
			want: http.StatusOK,
		},
		{
			name: "should list the appointments of a clinic at a date",
			args: args{
				user:   userWith(auth.ReceptionistRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(listClinicAppointmentsQuery, 3, appointmentRows(StatusBooked)),
				},
				method: http.MethodGet,
				path:   clinicPath + "?date=2024-03-11",
			},
			want: http.StatusOK,
		},
		{
			name: "should list today's appointments of a clinic",
			args: args{
				user:   userWith(auth.ReceptionistRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(listClinicAppointmentsQuery, 3, sqlmock.NewRows(appointmentColumns)),
				},
				method: http.MethodGet,
				path:   clinicPath,
			},
			want: http.StatusOK,
		},
		{
			name: "should not list the appointments of an invalid date",
			args: args{
				user:   userWith(auth.ReceptionistRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				method: http.MethodGet,
				path:   clinicPath + "?date=11/03/2024",
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should summarize the appointments of a clinic",
			args: args{
				user:   userWith(auth.AdminRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findClinicByUUIDQuery, 1, clinicRows()),
					mock.WithQueryResult(countStatsQuery, 3, sqlmock.NewRows([]string{"total", "remaining", "waiting_list"}).AddRow(3, 1, 0)),
				},
				method: http.MethodGet,
				path:   clinicPath + "/stats",
			},
			want: http.StatusOK,
		},
		{
			name: "should not summarize an unknown clinic",
			args: args{
				user:   userWith(auth.AdminRole, uuid.New()),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(findClinicByUUIDQuery, 1, sqlmock.NewRows([]string{"id", "uuid", "name", "branch"})),
				},
				method: http.MethodGet,
				path:   clinicPath + "/stats",
			},
			want: http.StatusNotFound,
		},
		{
			name: "should list the slots booked with a doctor",
			args: args{
				user:   userWith(auth.PatientRole, patientUUID),
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					mock.WithQueryResult(listBookedSlotsQuery, 2, sqlmock.NewRows([]string{"date", "time"}).AddRow(monday(), "10:00")),
				},
				method: http.MethodGet,
				path:   fmt.Sprintf("%s/%s", clinicPath, doctorUUID),
			},
			want: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			Setup(router, logger, authorizerFor(tt.args.user), config, tt.args.dbConn, WithClock(monday))

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			tokens := auth.MustGenerateTokens(context.TODO(), config.PrivateKey(), tt.args.user)
			var body io.Reader
			if tt.args.body != nil {
				payload, _ := json.Marshal(tt.args.body)
				body = bytes.NewBuffer(payload)
			}
			req, _ := http.NewRequest(tt.args.method, tt.args.path, body)
			req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", tokens.AccessToken))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
			if err := tt.args.dbConn.SQLMock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled database expectations: %v", err)
			}
		})
	}
}
