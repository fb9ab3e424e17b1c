package migrations

import (
	"github.com/openbid/auction-api/internal/types"
	"gorm.io/gorm"
)

// AddBidIndexes creates the bid ledger tables and required indexes
func AddBidIndexes(db *gorm.DB) error {
	if err := db.AutoMigrate(&types.AutoBid{}, &types.Bid{}); err != nil {
		return err
	}

	// Add indexes for better query performance
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Ranking reads: all active maximums for a product, highest first
		`CREATE INDEX IF NOT EXISTS idx_auto_bids_product_amount
		 ON auto_bids(product_id, max_amount DESC)`,

		// History reads: newest entries for a product first
		`CREATE INDEX IF NOT EXISTS idx_bids_product_created_at
		 ON bids(product_id, created_at DESC)`,

		// Rejection purge: all history rows for one bidder on one product
		`CREATE INDEX IF NOT EXISTS idx_bids_product_bidder
		 ON bids(product_id, bidder_id)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
