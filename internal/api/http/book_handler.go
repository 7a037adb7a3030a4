package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"library-backend/internal/domain"
)

type bookRequest struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	ISBN          string  `json:"isbn"`
	PublishedYear int32   `json:"published_year"`
	Description   string  `json:"description"`
	Quantity      int32   `json:"quantity"`
	CategoryIDs   []int32 `json:"category_ids"`
}

func (req bookRequest) toDomain() *domain.Book {
	return &domain.Book{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		PublishedYear: req.PublishedYear,
		Description:   req.Description,
		Quantity:      req.Quantity,
		CategoryIDs:   req.CategoryIDs,
	}
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID, err := queryInt32(r, "category_id", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := domain.BookFilter{
		Title:         q.Get("title"),
		Author:        q.Get("author"),
		CategoryID:    categoryID,
		AvailableOnly: queryBool(r, "available"),
	}
	books, total, err := h.svc.Books.ListBooks(r.Context(), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, books, total, page)
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	book := req.toDomain()
	if err := h.svc.Books.CreateBook(r.Context(), book); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.svc.Books.GetBook(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) getBookByISBN(w http.ResponseWriter, r *http.Request) {
	book, err := h.svc.Books.GetBookByISBN(r.Context(), mux.Vars(r)["isbn"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	book := req.toDomain()
	book.ID = id
	updated, err := h.svc.Books.UpdateBook(r.Context(), book)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Books.DeleteBook(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Books.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var category domain.Category
	if err := decodeJSON(r, &category); err != nil {
		writeError(w, r, err)
		return
	}
	category.ID = 0
	if err := h.svc.Books.CreateCategory(r.Context(), &category); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Books.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
