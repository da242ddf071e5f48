package main

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/autopo-reorder/internal/config"
	"github.com/andresuchdata/autopo-reorder/internal/drive"
	"github.com/andresuchdata/autopo-reorder/internal/provider"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/andresuchdata/autopo-reorder/internal/repository"
	"github.com/andresuchdata/autopo-reorder/internal/repository/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// source is the provider selected by the global flags plus whatever must be closed
// afterwards.
type source struct {
	provider provider.MetricProvider
	scope    provider.Scope
	db       *postgres.DB
}

func (s *source) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// drafts returns the draft store when a database source is open.
func (s *source) drafts() repository.DraftRepository {
	if s.db == nil {
		return nil
	}
	return postgres.NewDraftPORepository(s.db)
}

func openSource(c *cli.Context, cfg *config.Config) (*source, error) {
	var scope provider.Scope
	if id := c.Int64("organization-id"); id > 0 {
		scope.OrganizationID = &id
	}
	if id := c.Int64("location-id"); id > 0 {
		scope.LocationID = &id
	}

	switch {
	case c.String("input") != "":
		return &source{provider: provider.NewCSVProvider(c.String("input")), scope: scope}, nil

	case c.String("drive-file-id") != "" || c.String("drive-path") != "":
		items, err := downloadSnapshot(c)
		if err != nil {
			return nil, err
		}
		return &source{provider: provider.NewStaticProvider("drive", items), scope: scope}, nil

	case c.String("db-url") != "":
		db, err := sql.Open("pgx", c.String("db-url"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(c.Context); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		wrapped := postgres.Wrap(sqlx.NewDb(db, "pgx"))
		fallback := provider.NewFallbackProvider(
			provider.NewMartProvider(wrapped.DB),
			provider.NewRawProvider(wrapped.DB),
			cfg.Reorder.FallbackOnAnyError,
		)
		return &source{provider: fallback, scope: scope, db: wrapped}, nil
	}

	return nil, errors.New("one of --input, --drive-file-id, --drive-path or --db-url is required")
}

func downloadSnapshot(c *cli.Context) ([]reorder.Item, error) {
	svc, err := drive.NewService(c.Context, c.String("drive-credentials"))
	if err != nil {
		return nil, err
	}

	fileID := c.String("drive-file-id")
	if fileID == "" {
		file, err := svc.ResolveFile(c.Context, c.String("drive-path"))
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", file.Name).Str("modified", file.ModifiedTime).Msg("resolved drive snapshot")
		fileID = file.ID
	}

	var buf bytes.Buffer
	if err := svc.DownloadFile(c.Context, fileID, &buf); err != nil {
		return nil, err
	}
	return provider.ParseCSV(&buf)
}
