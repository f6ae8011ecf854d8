package auditlog

type Error string

const (
	ErrInvalidLimit = "limit must be a number between 1 and 500"
)

func (e Error) Error() string {
	return string(e)
}
