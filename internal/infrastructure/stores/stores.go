package stores

import (
	"context"
	"errors"
	"fmt"

	"domain-auction/internal/config"
	"domain-auction/internal/domain"
	"domain-auction/internal/infrastructure/memory"
	"domain-auction/internal/infrastructure/mysql"
	"domain-auction/internal/infrastructure/postgres"
	"domain-auction/pkg/logger"
	"domain-auction/pkg/utils"
)

// ErrProcessLocal is returned by OpenShared for backends whose data is
// visible to a single process only.
var ErrProcessLocal = errors.New("database driver is process-local")

// Stores bundles the auction store and profile lookup for one backend.
type Stores struct {
	Auctions domain.AuctionStore
	Profiles domain.ProfileLookup
	close    func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects the backend named by database.driver, applying the schema
// first when database.auto_migrate is set.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*Stores, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := utils.InitializeMysql(ctx, cfg.MySQL)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := mysql.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		log.Info("Connected to MySQL")
		return &Stores{
			Auctions: mysql.NewMySQLAuctionRepository(db),
			Profiles: mysql.NewMySQLProfileRepository(db),
			close: func() {
				if err := db.Close(); err != nil {
					log.Error("Failed to close MySQL connection", "error", err)
				}
			},
		}, nil

	case "postgres":
		pool, err := utils.InitializePostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		log.Info("Connected to Postgres")
		return &Stores{
			Auctions: postgres.NewPostgresAuctionRepository(pool),
			Profiles: postgres.NewPostgresProfileRepository(pool),
			close:    pool.Close,
		}, nil

	case "memory":
		log.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &Stores{Auctions: store, Profiles: store}, nil
	}

	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// OpenShared is Open for processes that read data written by another
// process. The memory driver is rejected.
func OpenShared(ctx context.Context, cfg *config.Config, log logger.Logger) (*Stores, error) {
	if cfg.Database.Driver == "memory" {
		return nil, fmt.Errorf("%w: %q cannot see auctions created by auction-service", ErrProcessLocal, cfg.Database.Driver)
	}
	return Open(ctx, cfg, log)
}
