package users

import "time"

// User is the local directory record for a provider subject.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile is the identity and names presented by a sync request.
type Profile struct {
	SubjectID string
	Email     string
	FirstName string
	LastName  string
}

// Outcome reports what Reconcile did to the directory.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

func (u User) matches(p Profile) bool {
	return u.Email == p.Email && u.FirstName == p.FirstName && u.LastName == p.LastName
}
