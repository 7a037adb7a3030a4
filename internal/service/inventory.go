package service

import (
	"context"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
)

// Inventory is the ledger of available copies. The book must already be
// locked by the surrounding transaction.
type Inventory struct {
	books repository.BookRepository
}

func NewInventory(books repository.BookRepository) Inventory {
	return Inventory{books: books}
}

func (i Inventory) Available(ctx context.Context, bookID int32) (int32, error) {
	book, err := i.books.GetByID(ctx, bookID)
	if err != nil {
		return 0, err
	}
	return book.Quantity, nil
}

// Adjust applies delta to the book's quantity. A result below zero fails with
// InvariantViolation and nothing is written.
func (i Inventory) Adjust(ctx context.Context, book *domain.Book, delta int32) error {
	next := book.Quantity + delta
	if next < 0 {
		return domain.NewError(domain.KindInvariantViolation, "quantity of book %d cannot drop below zero (current %d, delta %d)", book.ID, book.Quantity, delta)
	}
	if err := i.books.SetQuantity(ctx, book.ID, next); err != nil {
		return err
	}
	book.Quantity = next
	return nil
}
