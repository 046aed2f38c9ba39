package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/repository"
	"github.com/maheshrc27/curapost/internal/transfer"
)

type CatalogService interface {
	Ingest(ctx context.Context, filter transfer.CatalogFilter) (*transfer.IngestSummary, error)
}

type catalogService struct {
	db     *sql.DB
	client CatalogClient
	prod   repository.ProductRepository
	mr     repository.MediaRepository
	clock  func() time.Time
}

func NewCatalogService(db *sql.DB, client CatalogClient, prod repository.ProductRepository, mr repository.MediaRepository) CatalogService {
	return &catalogService{db: db, client: client, prod: prod, mr: mr, clock: time.Now}
}

// Ingest fetches catalog records and stores the ones not seen before, each with its media.
func (s *catalogService) Ingest(ctx context.Context, filter transfer.CatalogFilter) (*transfer.IngestSummary, error) {
	records, err := s.client.Fetch(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := &transfer.IngestSummary{Fetched: len(records)}
	for _, record := range records {
		exists, err := s.prod.ExistsByExternalID(ctx, record.ExternalID)
		if err != nil {
			return summary, fmt.Errorf("failed to check product %s: %w", record.ExternalID, err)
		}
		if exists {
			summary.Skipped++
			continue
		}

		if err := s.insert(ctx, record); err != nil {
			slog.Error("failed to store product", "external_id", record.ExternalID, "error", err)
			summary.Skipped++
			continue
		}
		summary.Inserted++
	}

	slog.Info("catalog ingested", "fetched", summary.Fetched, "inserted", summary.Inserted, "skipped", summary.Skipped)
	return summary, nil
}

func (s *catalogService) insert(ctx context.Context, record transfer.ProductRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	productID, err := s.prod.Create(ctx, tx, &models.Product{
		ExternalID:      record.ExternalID,
		Title:           record.Title,
		Performers:      nonNil(record.Performers),
		Categories:      nonNil(record.Categories),
		Maker:           record.Maker,
		URL:             record.URL,
		PackageImageURL: record.PackageImageURL,
		ReleaseDate:     record.ReleaseDate,
		FetchedAt:       s.clock(),
	})
	if err != nil {
		return err
	}

	var media []models.Media
	if record.PackageImageURL != "" {
		media = append(media, models.Media{RemoteURL: record.PackageImageURL, Kind: models.MediaKindPackage})
	}
	for _, u := range record.SampleImageURLs {
		media = append(media, models.Media{RemoteURL: u, Kind: models.MediaKindSample})
	}
	if record.SampleVideoURL != "" {
		media = append(media, models.Media{RemoteURL: record.SampleVideoURL, Kind: models.MediaKindVideo})
	}

	for i := range media {
		media[i].ProductID = productID
		if _, err = s.mr.Create(ctx, tx, &media[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
