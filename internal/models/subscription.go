package models

import "time"

// Channel is a per-species notification topic. Channels are created on
// first subscription and never deleted, so a channel can exist with zero
// subscribers.
type Channel struct {
	Name      string
	Species   string
	CreatedAt time.Time
}

type Subscription struct {
	Channel   string
	Email     string
	CreatedAt time.Time
}
