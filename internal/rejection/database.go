package rejection

import (
	"errors"
	"time"

	"github.com/openbid/auction-api/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Transaction runs fn against a transaction-bound Database, rolling back on
// error or panic.
func (d *Database) Transaction(fn func(tx *Database) error) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&Database{db: tx}); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (d *Database) GetProduct(productID int64) (*types.Product, error) {
	var product types.Product
	if err := d.db.Where("product_id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetProductForUpdate re-reads the product inside the rejection transaction,
// which holds the write lock from its first statement.
func (d *Database) GetProductForUpdate(productID int64) (*types.Product, error) {
	var product types.Product
	err := d.db.Where("product_id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (d *Database) CreateRejection(rejection *types.Rejection) error {
	return d.db.Create(rejection).Error
}

// DeleteAutoBid removes the bidder's maximum for good. A hard delete keeps
// the (product, bidder) unique index free for any later resubmission.
func (d *Database) DeleteAutoBid(productID, bidderID int64) error {
	return d.db.Unscoped().
		Where("product_id = ? AND bidder_id = ?", productID, bidderID).
		Delete(&types.AutoBid{}).Error
}

// DeleteBids purges the disqualified bidder's history rows; their price points
// were never valid without them.
func (d *Database) DeleteBids(productID, bidderID int64) error {
	return d.db.Unscoped().
		Where("product_id = ? AND bidder_id = ?", productID, bidderID).
		Delete(&types.Bid{}).Error
}

func (d *Database) GetActiveAutoBids(productID int64) ([]types.AutoBid, error) {
	var autoBids []types.AutoBid
	err := d.db.Where("product_id = ?", productID).
		Order("max_amount DESC, created_at ASC, id ASC").
		Find(&autoBids).Error
	if err != nil {
		return nil, err
	}
	return autoBids, nil
}

func (d *Database) CreateBid(bid *types.Bid) error {
	return d.db.Create(bid).Error
}

func (d *Database) UpdateProjection(productID int64, price decimal.Decimal, highestBidderID *int64, bidCount int) error {
	return d.db.Model(&types.Product{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"current_price":     price,
			"highest_bidder_id": highestBidderID,
			"bid_count":         bidCount,
			"updated_at":        time.Now(),
		}).Error
}

func (d *Database) GetRejections(productID int64) ([]types.Rejection, error) {
	var rejections []types.Rejection
	err := d.db.Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&rejections).Error
	if err != nil {
		return nil, err
	}
	return rejections, nil
}
