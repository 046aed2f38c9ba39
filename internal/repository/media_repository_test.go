package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/repository"
)

var mediaCols = []string{
	"id", "product_id", "remote_url", "local_path", "mirror_url", "downloaded",
	"selected", "selection_order", "kind", "created_at",
}

func TestMediaRepository_SetSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces selection in order", func(t *testing.T) {
		db, mock := newMock(t)
		repo := repository.NewMediaRepository(db, tokyo)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE media SET selected = FALSE").
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("UPDATE media SET selected = TRUE").
			WithArgs(1, int64(30), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE media SET selected = TRUE").
			WithArgs(2, int64(10), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.SetSelection(ctx, 1, []int64{30, 10}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign media rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		repo := repository.NewMediaRepository(db, tokyo)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE media SET selected = FALSE").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("UPDATE media SET selected = TRUE").
			WithArgs(1, int64(99), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SetSelection(ctx, 1, []int64{99})
		assert.ErrorIs(t, err, repository.ErrMediaNotInProduct)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty selection clears", func(t *testing.T) {
		db, mock := newMock(t)
		repo := repository.NewMediaRepository(db, tokyo)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE media SET selected = FALSE").
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectCommit()

		require.NoError(t, repo.SetSelection(ctx, 1, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMediaRepository_ListSelectedByProductID(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewMediaRepository(db, tokyo)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM media m").
		WithArgs(int64(1), models.MaxSelectedMedia).
		WillReturnRows(sqlmock.NewRows(mediaCols).
			AddRow(int64(3), int64(1), "https://img/3.jpg", "static/images/a.jpg", "https://media.example.com/media/a.jpg", true, true, int64(1), "sample", now).
			AddRow(int64(2), int64(1), "https://img/2.jpg", nil, nil, false, true, int64(2), "package", now))

	media, err := repo.ListSelectedByProductID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, media, 2)

	assert.Equal(t, int64(3), media[0].ID)
	require.NotNil(t, media[0].SelectionOrder)
	assert.Equal(t, 1, *media[0].SelectionOrder)
	assert.Equal(t, "static/images/a.jpg", media[0].LocalPath)
	assert.Equal(t, "https://media.example.com/media/a.jpg", media[0].MirrorURL)
	assert.Equal(t, models.MediaKindPackage, media[1].Kind)
	assert.Empty(t, media[1].LocalPath)
	assert.Empty(t, media[1].MirrorURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepository_MarkDownloaded(t *testing.T) {
	tests := []struct {
		name      string
		mirrorURL string
	}{
		{name: "with mirror location", mirrorURL: "https://media.example.com/media/abc.jpg"},
		{name: "without mirror location", mirrorURL: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := repository.NewMediaRepository(db, tokyo)

			mock.ExpectExec(`UPDATE media .* mirror_url = COALESCE\(NULLIF\(\$2, ''\), mirror_url\)`).
				WithArgs("static/images/product_1_sample_3.jpg", tt.mirrorURL, int64(3)).
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, repo.MarkDownloaded(context.Background(), 3, "static/images/product_1_sample_3.jpg", tt.mirrorURL))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
