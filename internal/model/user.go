package model

import "time"

// User holds the subset of account data the calculation core needs:
// the residence country drives which treaty rules apply.
type User struct {
	ID               string
	Email            string
	ResidenceCountry string // empty when the user has not set it yet
	CreatedAt        time.Time
}
