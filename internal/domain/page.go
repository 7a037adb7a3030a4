package domain

// SortOrder names a column and direction for list queries.
type SortOrder struct {
	Field string
	Desc  bool
}

// Page describes an offset/limit window. A non-positive Limit means the store default.
type Page struct {
	Offset int32
	Limit  int32
	Sort   SortOrder
}

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

// Normalize clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}
