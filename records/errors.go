package records

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Vendor codes for "row is still referenced" failures.
const (
	mysqlRowIsReferenced  = 1451
	mysqlRowIsReferenced2 = 1217
	postgresFKViolation   = "23503"
)

// ConstraintError reports that a write was rejected by a foreign key.
// Code is the vendor error code as a string.
type ConstraintError struct {
	Op   string
	Code string
	Err  error
}

func (e *ConstraintError) Error() string {
	return "records: cannot " + e.Op + ", record is in use (code " + e.Code + ")"
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// constraintCode returns the vendor code when err is a foreign key
// violation raised by one of the supported drivers.
func constraintCode(err error) (string, bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number == mysqlRowIsReferenced || myErr.Number == mysqlRowIsReferenced2 {
			return strconv.Itoa(int(myErr.Number)), true
		}
		return "", false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) == postgresFKViolation {
			return postgresFKViolation, true
		}
		return "", false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		// ON DELETE RESTRICT reports SQLITE_CONSTRAINT_TRIGGER, not
		// SQLITE_CONSTRAINT_FOREIGNKEY, so the message is checked too.
		if liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey ||
			(liteErr.Code == sqlite3.ErrConstraint && strings.Contains(liteErr.Error(), "FOREIGN KEY")) {
			return strconv.Itoa(int(liteErr.ExtendedCode)), true
		}
	}

	return "", false
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) || goerrors.IsCategory(err, goerrors.CategoryNotFound)
}

// IsConstraint reports whether err is a *ConstraintError.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}
