package persistence

import (
	"context"
	"testing"

	"github.com/bapx/backend/internal/domain/attachment"
	"github.com/bapx/backend/internal/domain/document"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormAttachmentRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	docs := NewGormDocumentRepository(db)
	repo := NewGormAttachmentRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	d := seedDocument(t, docs, document.TypeBAPB, owner)
	other := seedDocument(t, docs, document.TypeBAPB, owner)

	a1, err := attachment.NewAttachment(d, "surat-jalan.pdf", 2048, "application/pdf", "", owner)
	require.NoError(t, err)
	a2, err := attachment.NewAttachment(d, "foto.png", 4096, "image/png", "tampak depan", owner)
	require.NoError(t, err)
	a3, err := attachment.NewAttachment(other, "lain.pdf", 100, "application/pdf", "", owner)
	require.NoError(t, err)
	for _, a := range []*attachment.Attachment{a1, a2, a3} {
		require.NoError(t, repo.Create(ctx, a))
	}

	t.Run("find by id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, a2.ID)
		require.NoError(t, err)
		assert.Equal(t, "foto.png", got.OriginalFilename)
		assert.Equal(t, int64(4096), got.SizeBytes)
		assert.Equal(t, a2.StorageKey, got.StorageKey)
		assert.Equal(t, document.TypeBAPB, got.DocumentType)

		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find by document", func(t *testing.T) {
		got, err := repo.FindByDocument(ctx, d.ID)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, a1.ID))
		assert.ErrorIs(t, repo.Delete(ctx, a1.ID), shared.ErrNotFound)
	})
}
