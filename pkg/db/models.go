package db

import "time"

// Session summarizes the picks of one practice session.
type Session struct {
	ID         string
	Picks      int
	Clean      int // picks answered without reveal or timeout
	StartedAt  time.Time
	LastPickAt time.Time
}
