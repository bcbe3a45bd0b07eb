package db

import "strings"

// IsUniqueViolation reports whether err looks like a unique-constraint
// violation. With a constraint name it matches that constraint specifically;
// otherwise it recognizes the generic Postgres and sqlite phrasings.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	for _, phrase := range []string{"duplicate key value", "UNIQUE constraint failed"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
