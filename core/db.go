package core

import "context"

// DB is the handle the API keeps on whichever store backs the repositories.
type DB interface {
	PingContext(ctx context.Context) error
	Close() error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
