package domain

import "time"

// Workout is the single persisted entity: an identifier, a name and a creation time.
type Workout struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
