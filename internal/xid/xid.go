package xid

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New returns a sortable identifier such as "reg_01j9z3...".
func New(prefix string) string {
	id := strings.ToLower(ulid.Make().String())
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// UUID returns a random record id.
func UUID() string {
	return uuid.NewString()
}

// IsUUID reports whether s is a canonical record id.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
