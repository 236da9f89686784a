package model

import "time"

// Score represents one catalogued piece of sheet music. The Filename field
// is the key of the uploaded PDF in blob storage; it is assigned once at
// upload time and never changes.
type Score struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Arranger  string    `json:"arranger"`
	Style     string    `json:"style"`
	Tempo     string    `json:"tempo"`
	ACappella bool      `json:"aCappella"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
