package auth

import (
	"context"

	"clinic-booking/internal/database"

	"github.com/google/uuid"
)

const (
	userColumns = "id, uuid, email, role"

	findUserByUUIDQuery   = "SELECT " + userColumns + " FROM tb_user WHERE uuid = $1"
	findLoginByEmailQuery = "SELECT " + userColumns + ", password FROM tb_user WHERE lower(email) = lower($1)"
)

// Repository reads the clinic users.
type Repository interface {

	// FindUserByUUID finds a user by its UUID, without the password hash.
	FindUserByUUID(ctx context.Context, uuid uuid.UUID) (*User, error)

	// FindLoginByEmail finds a user by its email, ignoring case, with the password hash.
	FindLoginByEmail(ctx context.Context, email string) (*User, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

// queryUser returns the first user matched by the query, or nil when there is none.
func (d defaultRepository) queryUser(ctx context.Context, query string, arg interface{}) (*User, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	if !rows.Next() {
		return nil, rows.Err()
	}
	user := new(User)
	if err = database.TransformRow(rows, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (d defaultRepository) FindUserByUUID(ctx context.Context, uuid uuid.UUID) (*User, error) {
	return d.queryUser(ctx, findUserByUUIDQuery, uuid.String())
}

func (d defaultRepository) FindLoginByEmail(ctx context.Context, email string) (*User, error) {
	return d.queryUser(ctx, findLoginByEmailQuery, email)
}
