package models

import "time"

// Visitor is a remote client seen by the HTTP surface.
type Visitor struct {
	IP        string    `json:"ip"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Count     int       `json:"count"`
	LastPath  string    `json:"last_path,omitempty"`
}
