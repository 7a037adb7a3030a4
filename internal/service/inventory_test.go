package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/domain"
	"library-backend/internal/repository/memory"
	"library-backend/internal/service"
)

func TestInventory_Adjust(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	book := &domain.Book{Title: "T", Author: "A", ISBN: "1", Quantity: 1}
	require.NoError(t, store.Books().Create(ctx, book))
	inv := service.NewInventory(store.Books())

	require.NoError(t, inv.Adjust(ctx, book, -1))
	assert.Equal(t, int32(0), book.Quantity)

	err := inv.Adjust(ctx, book, -1)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.Equal(t, int32(0), book.Quantity)

	available, err := inv.Available(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), available)

	require.NoError(t, inv.Adjust(ctx, book, 2))
	available, err = inv.Available(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), available)
}
