package gitlib

import "time"

// Signature is a git author or committer identity.
type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	When  time.Time `json:"when"`
}
