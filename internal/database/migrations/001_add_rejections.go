package migrations

import (
	"github.com/openbid/auction-api/internal/types"
	"gorm.io/gorm"
)

// AddRejections creates the rejection audit table
func AddRejections(db *gorm.DB) error {
	if err := db.AutoMigrate(&types.Rejection{}); err != nil {
		return err
	}

	return nil
}
