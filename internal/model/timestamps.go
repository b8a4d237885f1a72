package model

import "time"

// Timestamps holds the creation and last-modification times shared by every
// persisted entity. Embed it to get created_at/updated_at in the JSON form.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Touch sets both timestamps for a new record.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
