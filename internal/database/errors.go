package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MariaDB server error numbers the repositories care about.
const (
	errDuplicateEntry       = 1062
	errForeignKeyConstraint = 1452
)

// IsDuplicateEntry reports whether err is a unique-constraint violation.
// Repositories use it to turn constraint failures into conflict errors
// instead of letting them surface as 500s.
func IsDuplicateEntry(err error) bool {
	return mysqlErrorNumber(err) == errDuplicateEntry
}

// IsForeignKeyViolation reports whether err is a failed foreign key check
// on insert or update (the referenced row does not exist).
func IsForeignKeyViolation(err error) bool {
	return mysqlErrorNumber(err) == errForeignKeyConstraint
}

func mysqlErrorNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}
