package repository

import "github.com/google/uuid"

// validID reports whether id can be compared against a uuid column. Lookups
// with anything else return pgx.ErrNoRows without a round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
