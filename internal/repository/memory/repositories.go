package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"library-backend/internal/domain"
)

func notFound(entity string, key any) error {
	return domain.NewError(domain.KindNotFound, "%s %v not found", entity, key)
}

func window[T any](items []T, page domain.Page) []T {
	page = page.Normalize()
	start := int(page.Offset)
	if start > len(items) {
		start = len(items)
	}
	end := start + int(page.Limit)
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func copyLoan(l domain.Loan) domain.Loan {
	if l.ReturnDate != nil {
		rd := *l.ReturnDate
		l.ReturnDate = &rd
	}
	return l
}

type bookRepository struct{ r repos }

func (b *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	st := b.r.s.state
	for _, existing := range st.books {
		if existing.ISBN == book.ISBN {
			return domain.NewError(domain.KindConflict, "isbn %s already exists", book.ISBN)
		}
	}
	if book.Quantity < 0 {
		return domain.NewError(domain.KindInvariantViolation, "quantity cannot be negative")
	}
	now := time.Now().UTC()
	book.ID = st.nextID()
	book.CreatedOn, book.UpdatedOn = now, now
	row := *book
	row.CategoryIDs = nil
	st.books[book.ID] = row
	return nil
}

func (b *bookRepository) get(id int32) (*domain.Book, error) {
	st := b.r.s.state
	row, ok := st.books[id]
	if !ok {
		return nil, notFound("book", id)
	}
	row.CategoryIDs = append([]int32(nil), st.bookCategories[id]...)
	return &row, nil
}

func (b *bookRepository) GetByID(ctx context.Context, id int32) (*domain.Book, error) {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	return b.get(id)
}

func (b *bookRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Book, error) {
	return b.GetByID(ctx, id)
}

func (b *bookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	for id, row := range b.r.s.state.books {
		if row.ISBN == isbn {
			return b.get(id)
		}
	}
	return nil, notFound("book with isbn", isbn)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (b *bookRepository) List(ctx context.Context, f domain.BookFilter, page domain.Page) ([]domain.Book, int32, error) {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	st := b.r.s.state
	var out []domain.Book
	for id := range st.books {
		book, _ := b.get(id)
		if f.Title != "" && !containsFold(book.Title, f.Title) {
			continue
		}
		if f.Author != "" && !containsFold(book.Author, f.Author) {
			continue
		}
		if f.AvailableOnly && book.Quantity <= 0 {
			continue
		}
		if f.CategoryID != 0 && !hasCategory(book.CategoryIDs, f.CategoryID) {
			continue
		}
		out = append(out, *book)
	}
	sort.Slice(out, func(i, j int) bool {
		less := bookLess(out[i], out[j], page.Sort.Field)
		if page.Sort.Desc {
			return bookLess(out[j], out[i], page.Sort.Field)
		}
		return less
	})
	return append([]domain.Book{}, window(out, page)...), int32(len(out)), nil
}

func hasCategory(ids []int32, id int32) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}

func bookLess(a, b domain.Book, field string) bool {
	switch field {
	case "title":
		if a.Title != b.Title {
			return a.Title < b.Title
		}
	case "author":
		if a.Author != b.Author {
			return a.Author < b.Author
		}
	case "quantity":
		if a.Quantity != b.Quantity {
			return a.Quantity < b.Quantity
		}
	case "year":
		if a.PublishedYear != b.PublishedYear {
			return a.PublishedYear < b.PublishedYear
		}
	}
	return a.ID < b.ID
}

func (b *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	st := b.r.s.state
	row, ok := st.books[book.ID]
	if !ok {
		return notFound("book", book.ID)
	}
	row.Title = book.Title
	row.Author = book.Author
	row.PublishedYear = book.PublishedYear
	row.Description = book.Description
	row.UpdatedOn = time.Now().UTC()
	book.UpdatedOn = row.UpdatedOn
	st.books[book.ID] = row
	return nil
}

func (b *bookRepository) SetQuantity(ctx context.Context, id int32, quantity int32) error {
	if quantity < 0 {
		return domain.NewError(domain.KindInvariantViolation, "quantity of book %d cannot become %d", id, quantity)
	}
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	st := b.r.s.state
	row, ok := st.books[id]
	if !ok {
		return notFound("book", id)
	}
	row.Quantity = quantity
	row.UpdatedOn = time.Now().UTC()
	st.books[id] = row
	return nil
}

func (b *bookRepository) SetCategories(ctx context.Context, bookID int32, categoryIDs []int32) error {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	st := b.r.s.state
	if _, ok := st.books[bookID]; !ok {
		return notFound("book", bookID)
	}
	for _, cid := range categoryIDs {
		if _, ok := st.categories[cid]; !ok {
			return domain.NewError(domain.KindConflict, "category %d does not exist", cid)
		}
	}
	st.bookCategories[bookID] = append([]int32(nil), categoryIDs...)
	return nil
}

func (b *bookRepository) Delete(ctx context.Context, id int32) error {
	b.r.mu.Lock()
	defer b.r.mu.Unlock()
	st := b.r.s.state
	if _, ok := st.books[id]; !ok {
		return notFound("book", id)
	}
	for _, l := range st.loans {
		if l.BookID == id {
			return domain.NewError(domain.KindConflict, "book %d is still referenced by loans", id)
		}
	}
	delete(st.books, id)
	delete(st.bookCategories, id)
	for rid, res := range st.reservations {
		if res.BookID == id {
			delete(st.reservations, rid)
		}
	}
	return nil
}

type userRepository struct{ r repos }

func (u *userRepository) emailTaken(email string, except int32) bool {
	for id, row := range u.r.s.state.users {
		if id != except && strings.EqualFold(row.Email, email) {
			return true
		}
	}
	return false
}

func (u *userRepository) Create(ctx context.Context, user *domain.User) error {
	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	if u.emailTaken(user.Email, 0) {
		return domain.NewError(domain.KindConflict, "email %s already exists", user.Email)
	}
	st := u.r.s.state
	now := time.Now().UTC()
	user.ID = st.nextID()
	user.CreatedOn, user.UpdatedOn = now, now
	st.users[user.ID] = *user
	return nil
}

func (u *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	row, ok := u.r.s.state.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &row, nil
}

func (u *userRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.User, error) {
	return u.GetByID(ctx, id)
}

func (u *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	for _, row := range u.r.s.state.users {
		if strings.EqualFold(row.Email, email) {
			row := row
			return &row, nil
		}
	}
	return nil, notFound("user with email", email)
}

func (u *userRepository) List(ctx context.Context, f domain.UserFilter, page domain.Page) ([]domain.User, int32, error) {
	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	var out []domain.User
	for _, row := range u.r.s.state.users {
		if f.ActiveOnly && !row.IsActive {
			continue
		}
		if f.Email != "" && !containsFold(row.Email, f.Email) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if page.Sort.Desc {
			a, b = b, a
		}
		switch page.Sort.Field {
		case "email":
			if a.Email != b.Email {
				return a.Email < b.Email
			}
		case "full_name":
			if a.FullName != b.FullName {
				return a.FullName < b.FullName
			}
		}
		return a.ID < b.ID
	})
	return append([]domain.User{}, window(out, page)...), int32(len(out)), nil
}

func (u *userRepository) Update(ctx context.Context, user *domain.User) error {
	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	st := u.r.s.state
	row, ok := st.users[user.ID]
	if !ok {
		return notFound("user", user.ID)
	}
	if u.emailTaken(user.Email, user.ID) {
		return domain.NewError(domain.KindConflict, "email %s already exists", user.Email)
	}
	user.CreatedOn = row.CreatedOn
	user.UpdatedOn = time.Now().UTC()
	st.users[user.ID] = *user
	return nil
}

func (u *userRepository) Delete(ctx context.Context, id int32) error {
	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	st := u.r.s.state
	if _, ok := st.users[id]; !ok {
		return notFound("user", id)
	}
	for _, l := range st.loans {
		if l.UserID == id {
			return domain.NewError(domain.KindConflict, "user %d is still referenced by loans", id)
		}
	}
	delete(st.users, id)
	for rid, res := range st.reservations {
		if res.UserID == id {
			delete(st.reservations, rid)
		}
	}
	return nil
}

type loanRepository struct{ r repos }

func (l *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	st := l.r.s.state
	if !loan.DueDate.After(loan.LoanDate) {
		return domain.NewError(domain.KindInvariantViolation, "due date must be after loan date")
	}
	if loan.IsActive() {
		for _, row := range st.loans {
			if row.IsActive() && row.UserID == loan.UserID && row.BookID == loan.BookID {
				return domain.NewError(domain.KindConflict, "user %d already holds an active loan for book %d", loan.UserID, loan.BookID)
			}
		}
	}
	loan.ID = st.nextID()
	st.loans[loan.ID] = copyLoan(*loan)
	return nil
}

func (l *loanRepository) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	row, ok := l.r.s.state.loans[id]
	if !ok {
		return nil, notFound("loan", id)
	}
	row = copyLoan(row)
	return &row, nil
}

func (l *loanRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Loan, error) {
	return l.GetByID(ctx, id)
}

func matchLoan(row domain.Loan, f domain.LoanFilter) bool {
	if f.UserID != 0 && row.UserID != f.UserID {
		return false
	}
	if f.BookID != 0 && row.BookID != f.BookID {
		return false
	}
	if (f.ActiveOnly || f.OverdueAt != nil) && !row.IsActive() {
		return false
	}
	if f.OverdueAt != nil && !row.DueDate.Before(*f.OverdueAt) {
		return false
	}
	if f.LoanedSince != nil && row.LoanDate.Before(*f.LoanedSince) {
		return false
	}
	return true
}

func (l *loanRepository) List(ctx context.Context, f domain.LoanFilter, page domain.Page) ([]domain.Loan, int32, error) {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	var out []domain.Loan
	for _, row := range l.r.s.state.loans {
		if matchLoan(row, f) {
			out = append(out, copyLoan(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if page.Sort.Desc {
			a, b = b, a
		}
		switch page.Sort.Field {
		case "loan_date":
			if !a.LoanDate.Equal(b.LoanDate) {
				return a.LoanDate.Before(b.LoanDate)
			}
		case "due_date":
			if !a.DueDate.Equal(b.DueDate) {
				return a.DueDate.Before(b.DueDate)
			}
		}
		return a.ID < b.ID
	})
	return append([]domain.Loan{}, window(out, page)...), int32(len(out)), nil
}

func (l *loanRepository) ListActiveByUser(ctx context.Context, userID int32) ([]domain.Loan, error) {
	loans, _, err := l.List(ctx, domain.LoanFilter{UserID: userID, ActiveOnly: true}, domain.Page{Limit: domain.MaxPageLimit})
	return loans, err
}

func (l *loanRepository) CountActiveByBook(ctx context.Context, bookID int32) (int32, error) {
	_, count, err := l.List(ctx, domain.LoanFilter{BookID: bookID, ActiveOnly: true}, domain.Page{})
	return count, err
}

func (l *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	st := l.r.s.state
	row, ok := st.loans[loan.ID]
	if !ok {
		return notFound("loan", loan.ID)
	}
	if !loan.DueDate.After(row.LoanDate) {
		return domain.NewError(domain.KindInvariantViolation, "due date must be after loan date")
	}
	if loan.ReturnDate != nil && loan.ReturnDate.Before(row.LoanDate) {
		return domain.NewError(domain.KindInvariantViolation, "return date must not precede loan date")
	}
	row.DueDate = loan.DueDate
	row.ReturnDate = loan.ReturnDate
	row.Extended = loan.Extended
	st.loans[loan.ID] = copyLoan(row)
	return nil
}

func (l *loanRepository) Delete(ctx context.Context, id int32) error {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	if _, ok := l.r.s.state.loans[id]; !ok {
		return notFound("loan", id)
	}
	delete(l.r.s.state.loans, id)
	return nil
}

type categoryRepository struct{ r repos }

func (c *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	st := c.r.s.state
	for _, row := range st.categories {
		if strings.EqualFold(row.Name, category.Name) {
			return domain.NewError(domain.KindConflict, "category %s already exists", category.Name)
		}
	}
	category.ID = st.nextID()
	st.categories[category.ID] = *category
	return nil
}

func (c *categoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	row, ok := c.r.s.state.categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return &row, nil
}

func (c *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	out := []domain.Category{}
	for _, row := range c.r.s.state.categories {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *categoryRepository) Delete(ctx context.Context, id int32) error {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	st := c.r.s.state
	if _, ok := st.categories[id]; !ok {
		return notFound("category", id)
	}
	delete(st.categories, id)
	for bookID, ids := range st.bookCategories {
		kept := ids[:0]
		for _, cid := range ids {
			if cid != id {
				kept = append(kept, cid)
			}
		}
		st.bookCategories[bookID] = kept
	}
	return nil
}

type reservationRepository struct{ r repos }

func (rr *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	rr.r.mu.Lock()
	defer rr.r.mu.Unlock()
	st := rr.r.s.state
	for _, row := range st.reservations {
		if row.UserID == res.UserID && row.BookID == res.BookID {
			return domain.NewError(domain.KindConflict, "user %d already reserved book %d", res.UserID, res.BookID)
		}
	}
	res.ID = st.nextID()
	st.reservations[res.ID] = *res
	return nil
}

func (rr *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	rr.r.mu.Lock()
	defer rr.r.mu.Unlock()
	row, ok := rr.r.s.state.reservations[id]
	if !ok {
		return nil, notFound("reservation", id)
	}
	return &row, nil
}

func (rr *reservationRepository) Exists(ctx context.Context, userID, bookID int32) (bool, error) {
	rr.r.mu.Lock()
	defer rr.r.mu.Unlock()
	for _, row := range rr.r.s.state.reservations {
		if row.UserID == userID && row.BookID == bookID {
			return true, nil
		}
	}
	return false, nil
}

func (rr *reservationRepository) list(keep func(domain.Reservation) bool) []domain.Reservation {
	rr.r.mu.Lock()
	defer rr.r.mu.Unlock()
	out := []domain.Reservation{}
	for _, row := range rr.r.s.state.reservations {
		if keep(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReservationDate.Equal(out[j].ReservationDate) {
			return out[i].ReservationDate.Before(out[j].ReservationDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (rr *reservationRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Reservation, error) {
	return rr.list(func(r domain.Reservation) bool { return r.UserID == userID }), nil
}

func (rr *reservationRepository) ListByBook(ctx context.Context, bookID int32) ([]domain.Reservation, error) {
	return rr.list(func(r domain.Reservation) bool { return r.BookID == bookID }), nil
}

func (rr *reservationRepository) Delete(ctx context.Context, id int32) error {
	rr.r.mu.Lock()
	defer rr.r.mu.Unlock()
	if _, ok := rr.r.s.state.reservations[id]; !ok {
		return notFound("reservation", id)
	}
	delete(rr.r.s.state.reservations, id)
	return nil
}

func (rr *reservationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	rr.r.mu.Lock()
	defer rr.r.mu.Unlock()
	var n int64
	for id, row := range rr.r.s.state.reservations {
		if row.ReservationDate.Before(cutoff) {
			delete(rr.r.s.state.reservations, id)
			n++
		}
	}
	return n, nil
}
