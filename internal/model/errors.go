package model

import (
	"fmt"
	"strings"
)

// ValidationError is returned as 400 when a circuit fails device constraints.
// It carries every violation found, not just the first.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("circuit validation failed: %s", strings.Join(e.Errors, "; "))
}

// NotFoundError is returned as 404.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}
