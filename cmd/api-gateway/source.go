package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sdg-impact-api/internal/handler"
	"github.com/noah-isme/sdg-impact-api/internal/models"
	"github.com/noah-isme/sdg-impact-api/internal/repository"
	"github.com/noah-isme/sdg-impact-api/pkg/config"
	"github.com/noah-isme/sdg-impact-api/pkg/database"
)

type snapshotStore interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	DecrementStock(ctx context.Context, rewardID string) error
	IncrementStock(ctx context.Context, rewardID string) error
}

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

// dataSource bundles the participation snapshot store with the report job store
// that lives next to it.
type dataSource struct {
	name  string
	store snapshotStore
	jobs  reportJobStore
	db    *sqlx.DB
}

func (d *dataSource) close() {
	if d.db != nil {
		_ = d.db.Close()
	}
}

// openSnapshotSource opens the configured participation store. A database that has
// no students yet is seeded from the fixture.
func openSnapshotSource(ctx context.Context, cfg *config.Config, logr *zap.Logger, readiness map[string]handler.ReadinessCheck) (*dataSource, error) {
	fixture, err := repository.LoadFixture(cfg.Data.FixturePath)
	if err != nil {
		return nil, err
	}

	switch cfg.Data.Source {
	case config.DataSourceMemory, "":
		return &dataSource{
			name:  config.DataSourceMemory,
			store: repository.NewMemorySnapshotRepository(fixture),
			jobs:  repository.NewMemoryReportRepository(),
		}, nil
	case config.DataSourceDatabase:
	default:
		return nil, fmt.Errorf("unsupported data source %q", cfg.Data.Source)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	snapshots := repository.NewSnapshotRepository(db)
	empty, err := snapshots.IsEmpty(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if empty {
		logr.Info("seeding empty database from fixture", zap.String("driver", cfg.Database.Driver), zap.Int("students", len(fixture.Students)))
		if err := snapshots.Seed(ctx, fixture); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	readiness["database"] = db.PingContext
	return &dataSource{
		name:  config.DataSourceDatabase,
		store: snapshots,
		jobs:  repository.NewReportRepository(db),
		db:    db,
	}, nil
}
