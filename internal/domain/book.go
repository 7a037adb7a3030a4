package domain

import "time"

type Book struct {
	ID            int32     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Author        string    `json:"author" db:"author"`
	ISBN          string    `json:"isbn" db:"isbn"`
	PublishedYear int32     `json:"published_year,omitempty" db:"published_year"`
	Description   string    `json:"description,omitempty" db:"description"`
	Quantity      int32     `json:"quantity" db:"quantity"` // currently available copies
	CategoryIDs   []int32   `json:"category_ids,omitempty" db:"-"`
	CreatedOn     time.Time `json:"created_on" db:"created_on"`
	UpdatedOn     time.Time `json:"updated_on" db:"updated_on"`
}

// IsAvailable reports whether at least one copy can be lent out.
func (b *Book) IsAvailable() bool {
	return b.Quantity > 0
}

type BookFilter struct {
	Title         string // case-insensitive substring
	Author        string // case-insensitive substring
	CategoryID    int32
	AvailableOnly bool
}

type Category struct {
	ID          int32  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
}
