package domain

import "time"

// CategoryService is a catalog entry for service categories. Only active
// categories qualify a ticket for the unassigned pool.
type CategoryService struct {
	ID        int64
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Office represents a physical location tickets originate from or are
// supported by.
type Office struct {
	ID   int64
	Name string
}

// Department represents a high-level organizational unit.
type Department struct {
	ID   int64
	Name string
}

// Role is a catalog entry; its name is mapped to an access scope by the
// scope resolver configuration.
type Role struct {
	ID   int64
	Name string
}
