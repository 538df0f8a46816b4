package repository

import "errors"

// ErrNotFound is returned when a referenced rule, category or subcategory
// does not exist. Callers surface it as a not-found condition; no partial
// mutation happens.
var ErrNotFound = errors.New("not found")
