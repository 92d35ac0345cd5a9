package postgres

import (
	"database/sql"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// validID reports whether id can be bound to a UUID column. Anything else
// cannot match a row and would make PostgreSQL reject the statement.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// rowScanner is satisfied by *sql.Rows and *tracedRow.
type rowScanner interface {
	Scan(dest ...any) error
}

// dateArg binds a calendar date to a DATE parameter.
func dateArg(d civil.Date) string {
	return d.String()
}

func nullDateArg(d *civil.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// pq hands DATE columns back as midnight UTC time.Time values.
func toDate(t time.Time) civil.Date {
	return civil.DateOf(t)
}

func toNullDate(t sql.NullTime) *civil.Date {
	if !t.Valid {
		return nil
	}
	d := civil.DateOf(t.Time)
	return &d
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
