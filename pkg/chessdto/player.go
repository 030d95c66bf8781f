package chessdto

import "time"

// PlayerView is a seat as shown to everyone.
type PlayerView struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Provenance  string    `json:"provenance"`
	JoinedAt    time.Time `json:"joinedAt"`
}
