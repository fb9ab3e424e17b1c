package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/openbid/auction-api/internal/auctionerrors"
	"github.com/openbid/auction-api/internal/bidding"
	"github.com/openbid/auction-api/internal/database"
	"github.com/openbid/auction-api/internal/rejection"
	"github.com/openbid/auction-api/internal/types"
	"github.com/openbid/auction-api/internal/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	numProducts      = 5
	numBidders       = 20
	bidsPerBidder    = 10
	numWorkers       = 8
	rejectionsToMake = 3
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// opStats tracks timing statistics for one operation type
type opStats struct {
	mu        sync.Mutex
	durations []time.Duration
	failures  int
	tooLow    int
}

func (s *opStats) record(d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = append(s.durations, d)
	if err != nil {
		if auctionerrors.KindOf(err) == auctionerrors.KindBidTooLow {
			s.tooLow++
		} else {
			s.failures++
		}
	}
}

// report logs min, max, mean and p95 latencies for the operation
func (s *opStats) report(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.durations) == 0 {
		return
	}
	sort.Slice(s.durations, func(i, j int) bool { return s.durations[i] < s.durations[j] })

	var sum time.Duration
	for _, d := range s.durations {
		sum += d
	}
	p95 := s.durations[(len(s.durations)*95)/100]

	log.Info().
		Str("operation", name).
		Int("calls", len(s.durations)).
		Int("failures", s.failures).
		Int("too_low", s.tooLow).
		Dur("min", s.durations[0]).
		Dur("max", s.durations[len(s.durations)-1]).
		Dur("mean", sum/time.Duration(len(s.durations))).
		Dur("p95", p95).
		Msg("operation statistics")
}

type bidRequest struct {
	productID int64
	bidderID  int64
	amount    decimal.Decimal
}

func main() {
	log.Info().Msg("starting auction bidding simulation")

	dir, err := os.MkdirTemp("", "auction-simulation")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create temp dir")
	}
	defer os.RemoveAll(dir)

	db, err := database.NewDatabase(filepath.Join(dir, "simulation.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	userService := users.NewService(db)
	biddingService := bidding.NewService(db, userService, nil)
	rejectionService := rejection.NewService(db, nil)

	if err := seed(db); err != nil {
		log.Fatal().Err(err).Msg("failed to seed simulation data")
	}

	// Fire concurrent bids through a worker pool
	requests := make(chan bidRequest, numBidders*bidsPerBidder)
	stats := &opStats{}

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range requests {
				start := time.Now()
				_, err := biddingService.PlaceBid(req.productID, req.bidderID, req.amount)
				stats.record(time.Since(start), err)
			}
		}()
	}

	for i := 0; i < numBidders; i++ {
		for j := 0; j < bidsPerBidder; j++ {
			requests <- bidRequest{
				productID: int64(1 + rand.Intn(numProducts)),
				bidderID:  int64(100 + i),
				amount:    decimal.NewFromInt(int64(50 + rand.Intn(2000))),
			}
		}
	}
	close(requests)
	wg.Wait()

	stats.report("place_bid")

	// Sellers reject a few leading bidders, forcing recomputation
	for i := 0; i < rejectionsToMake; i++ {
		productID := int64(1 + i)
		product, err := getProduct(db, productID)
		if err != nil || product == nil || product.HighestBidderID == nil {
			continue
		}
		state, err := rejectionService.RejectBidder(product.SellerID, productID, *product.HighestBidderID, "simulation rejection")
		if err != nil {
			log.Error().Err(err).Int64("product_id", productID).Msg("rejection failed")
			continue
		}
		log.Info().
			Int64("product_id", productID).
			Int64("rejected_bidder", *product.HighestBidderID).
			Str("new_price", state.VisiblePrice.String()).
			Int("remaining_bidders", state.BidCount).
			Msg("rejected leading bidder")
	}

	// Final state report
	for i := 1; i <= numProducts; i++ {
		product, err := getProduct(db, int64(i))
		if err != nil || product == nil {
			continue
		}
		entry := log.Info().
			Int64("product_id", product.ProductID).
			Str("current_price", product.CurrentPrice.String()).
			Int("bid_count", product.BidCount)
		if product.HighestBidderID != nil {
			entry = entry.Int64("highest_bidder", *product.HighestBidderID)
		}
		entry.Msg("final auction state")
	}

	log.Info().Msg("simulation complete")
}

// seed creates the products and bidders the simulation runs against.
// All bidders carry enough positive reviews to pass the eligibility gate.
func seed(db *gorm.DB) error {
	for i := 0; i < numProducts; i++ {
		startPrice := decimal.NewFromInt(int64(50 + 10*i))
		product := &types.Product{
			ProductID:      int64(1 + i),
			SellerID:       int64(10 + i),
			Name:           fmt.Sprintf("simulation listing %d", 1+i),
			Status:         types.ProductStatusActive,
			StartPrice:     startPrice,
			StepPrice:      decimal.NewFromInt(5),
			CurrentPrice:   startPrice,
			AllowNewBidder: true,
		}
		if err := db.Create(product).Error; err != nil {
			return err
		}
	}

	for i := 0; i < numBidders; i++ {
		user := &types.User{
			UserID:          int64(100 + i),
			FullName:        fmt.Sprintf("Simulated Bidder %d", i),
			PositiveReviews: 9,
			NegativeReviews: 1,
		}
		if err := db.Create(user).Error; err != nil {
			return err
		}
	}

	log.Info().
		Int("products", numProducts).
		Int("bidders", numBidders).
		Msg("seeded simulation data")
	return nil
}

func getProduct(db *gorm.DB, productID int64) (*types.Product, error) {
	var product types.Product
	if err := db.Where("product_id = ?", productID).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}
