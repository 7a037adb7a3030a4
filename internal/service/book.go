package service

import (
	"context"
	"strings"

	"library-backend/internal/cache"
	"library-backend/internal/domain"
	"library-backend/internal/repository"
)

type bookService struct {
	store repository.Store
	tx    *TxRunner
	cache *cache.Cache
}

func NewBookService(store repository.Store, tx *TxRunner, statsCache *cache.Cache) BookService {
	return &bookService{store: store, tx: tx, cache: statsCache}
}

func validateBook(book *domain.Book) error {
	book.Title = strings.TrimSpace(book.Title)
	book.Author = strings.TrimSpace(book.Author)
	book.ISBN = strings.TrimSpace(book.ISBN)
	switch {
	case book.Title == "":
		return domain.NewError(domain.KindInvalidArgument, "title is required")
	case book.Author == "":
		return domain.NewError(domain.KindInvalidArgument, "author is required")
	case book.ISBN == "":
		return domain.NewError(domain.KindInvalidArgument, "isbn is required")
	case len(book.ISBN) > 20:
		return domain.NewError(domain.KindInvalidArgument, "isbn must be at most 20 characters")
	}
	return nil
}

func (s *bookService) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate(cache.TagBooks)
	}
}

func (s *bookService) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := validateBook(book); err != nil {
		return err
	}
	if book.Quantity < 0 {
		return domain.NewError(domain.KindInvalidArgument, "quantity cannot be negative")
	}
	err := s.tx.Run(ctx, "create_book", func(ctx context.Context, repos repository.Repositories) error {
		if existing, err := repos.Books().GetByISBN(ctx, book.ISBN); err == nil {
			return domain.NewError(domain.KindConflict, "book with isbn %s already exists (id %d)", book.ISBN, existing.ID)
		} else if domain.KindOf(err) != domain.KindNotFound {
			return err
		}
		if err := repos.Books().Create(ctx, book); err != nil {
			return err
		}
		if len(book.CategoryIDs) > 0 {
			return repos.Books().SetCategories(ctx, book.ID, book.CategoryIDs)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *bookService) GetBook(ctx context.Context, id int32) (*domain.Book, error) {
	return s.store.Books().GetByID(ctx, id)
}

func (s *bookService) GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return s.store.Books().GetByISBN(ctx, strings.TrimSpace(isbn))
}

func (s *bookService) ListBooks(ctx context.Context, filter domain.BookFilter, page domain.Page) ([]domain.Book, int32, error) {
	return s.store.Books().List(ctx, filter, page)
}

// UpdateBook edits descriptive fields and, through the inventory ledger, the
// available quantity. The ISBN is immutable.
func (s *bookService) UpdateBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	var updated *domain.Book
	err := s.tx.Run(ctx, "update_book", func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Books().GetByIDForUpdate(ctx, book.ID)
		if err != nil {
			return err
		}
		if book.ISBN != "" && strings.TrimSpace(book.ISBN) != existing.ISBN {
			return domain.NewError(domain.KindInvalidArgument, "isbn cannot be changed")
		}
		book.ISBN = existing.ISBN
		if err := validateBook(book); err != nil {
			return err
		}
		existing.Title = book.Title
		existing.Author = book.Author
		existing.PublishedYear = book.PublishedYear
		existing.Description = book.Description
		if err := repos.Books().Update(ctx, existing); err != nil {
			return err
		}
		if delta := book.Quantity - existing.Quantity; delta != 0 {
			if err := NewInventory(repos.Books()).Adjust(ctx, existing, delta); err != nil {
				return err
			}
		}
		if book.CategoryIDs != nil {
			if err := repos.Books().SetCategories(ctx, existing.ID, book.CategoryIDs); err != nil {
				return err
			}
			existing.CategoryIDs = book.CategoryIDs
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return updated, nil
}

func (s *bookService) DeleteBook(ctx context.Context, id int32) error {
	err := s.tx.Run(ctx, "delete_book", func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Books().GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		active, err := repos.Loans().CountActiveByBook(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.NewError(domain.KindConflict, "book %d has %d active loans", id, active)
		}
		return repos.Books().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *bookService) CreateCategory(ctx context.Context, category *domain.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return domain.NewError(domain.KindInvalidArgument, "category name is required")
	}
	return s.store.Categories().Create(ctx, category)
}

func (s *bookService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.Categories().List(ctx)
}

func (s *bookService) DeleteCategory(ctx context.Context, id int32) error {
	return s.store.Categories().Delete(ctx, id)
}
