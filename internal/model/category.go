package model

import "time"

// Category is a user-defined label grouping expenses, e.g. "Food" or
// "Transport". Names are unique and matched case-sensitively.
type Category struct {
	CreatedAt time.Time
	Name      string
	ID        int64
}
