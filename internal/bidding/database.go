package bidding

import (
	"errors"
	"time"

	"github.com/openbid/auction-api/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Transaction runs fn against a transaction-bound Database. Any error from fn
// rolls the whole unit of work back; panics roll back and re-raise.
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

// GetProductForUpdate re-reads the product inside the placement transaction.
// Transactions are opened in write mode, so by the time this runs the
// transaction already holds the write lock and the read is stable for the
// rest of the unit of work. On a server database this is where a
// SELECT ... FOR UPDATE row lock belongs.
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

// UpsertAutoBid writes the bidder's maximum for the product. A conflicting row
// only has max_amount and updated_at replaced; created_at stays at the first
// submission so the bidder keeps their rank on equal maximums.
func (d *Database) UpsertAutoBid(productID, bidderID int64, maxAmount decimal.Decimal) error {
	autoBid := types.AutoBid{
		ProductID: productID,
		BidderID:  bidderID,
		MaxAmount: maxAmount,
	}
	return d.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "bidder_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"max_amount": maxAmount,
			"updated_at": time.Now(),
		}),
	}).Create(&autoBid).Error
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

func (d *Database) GetLatestBid(productID int64) (*types.Bid, error) {
	var bid types.Bid
	err := d.db.Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

func (d *Database) CreateBid(bid *types.Bid) error {
	return d.db.Create(bid).Error
}

// UpdateProjection rewrites the product's cached auction state.
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

// MarkSold closes the product after a buy-now purchase.
func (d *Database) MarkSold(productID int64) error {
	return d.db.Model(&types.Product{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"status":     types.ProductStatusSold,
			"updated_at": time.Now(),
		}).Error
}

func (d *Database) ListBids(productID int64, page, limit int) ([]types.Bid, int64, error) {
	var total int64
	if err := d.db.Model(&types.Bid{}).Where("product_id = ?", productID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bids []types.Bid
	err := d.db.Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&bids).Error
	if err != nil {
		return nil, 0, err
	}
	return bids, total, nil
}
