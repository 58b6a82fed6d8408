package models

import "time"

// Marker is an existence-only per-user document (like, follower, helpful mark). Its id is the
// user's uid.
type Marker struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToggleResult reports the marker state after a toggle.
type ToggleResult struct {
	Active bool  `json:"active"`
	Count  int64 `json:"count"`
}
