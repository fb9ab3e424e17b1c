package database

import (
	"fmt"

	"github.com/openbid/auction-api/internal/database/migrations"
	"github.com/openbid/auction-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection.
// Transactions open in write mode (_txlock=immediate) so concurrent bid
// placements serialize at the start of the transaction instead of failing on
// a mid-transaction lock upgrade; the busy timeout makes waiters queue.
func NewDatabase(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_txlock=immediate", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddRejections(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddBidIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&types.Product{},
		&types.AutoBid{},
		&types.Bid{},
		&types.User{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
