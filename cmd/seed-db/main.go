// Command seed-db prepares a database for the order API: it runs
// migrations, seeds an API key, and optionally imports a legacy order
// export while advancing the sequence counters past the imported numbers.
package main

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/retail-orders/internal/domain/auth"
	"github.com/xenking/retail-orders/internal/domain/order"
	"github.com/xenking/retail-orders/internal/repository"
)

// importWorkers bounds concurrent inserts during legacy import.
const importWorkers = 4

// legacyOrder is one line of the gzipped JSON-lines legacy export.
type legacyOrder struct {
	OrderNumber   string                `json:"order_number"`
	CustomerRef   string                `json:"customer_ref"`
	Lines         []order.Line          `json:"lines"`
	TaxRate       decimal.Decimal       `json:"tax_rate"`
	Discount      decimal.Decimal       `json:"discount"`
	DiscountType  string                `json:"discount_type"`
	DeliveryZone  string                `json:"delivery_zone"`
	Total         decimal.Decimal       `json:"total"`
	Status        string                `json:"status"`
	PaymentStatus string                `json:"payment_status"`
	PaymentMethod string                `json:"payment_method"`
	PaymentRef    string                `json:"payment_ref"`
	Billing       order.BillingInfo     `json:"billing"`
	Delivery      order.DeliveryAddress `json:"delivery_address"`
	CreatedBy     string                `json:"created_by"`
	CreatedAt     time.Time             `json:"created_at"`
}

func main() {
	var (
		databaseURL  string
		redisAddr    string
		apiKey       string
		apiKeyName   string
		apiKeyPepper string
		legacyFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&redisAddr, "redis-addr", "", "Redis address when the API uses the Redis sequence counter")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or ORDERS_SEED_API_KEY env)")
	flag.StringVar(&apiKeyName, "api-key-name", "Default test key", "display name recorded as created_by for the seeded key")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERS_API_KEY_PEPPER env)")
	flag.StringVar(&legacyFile, "legacy-orders", "", "optional gzipped JSON-lines legacy order export to import")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ORDERS_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or ORDERS_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ORDERS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, redisAddr, apiKey, apiKeyName, apiKeyPepper, legacyFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, redisAddr, apiKey, apiKeyName, pepper, legacyFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedAPIKey(ctx, pool, apiKey, apiKeyName, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	if legacyFile != "" {
		if err := importLegacyOrders(ctx, pool, redisAddr, legacyFile); err != nil {
			return errors.Wrap(err, "import legacy orders")
		}
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, name, pepper string) error {
	slog.Info("seeding API key", slog.String("name", name))

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	apikeys := repository.NewAPIKeyRepository(pool)
	if err := apikeys.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: keyHash,
		Name:    name,
		Scopes:  []string{"create_order"},
	}, true); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}

// scope identifies one (year, month) counter.
type scope struct {
	year  int
	month time.Month
}

// importLegacyOrders streams the gzipped export, verifies each order's
// monetary integrity, inserts it, and finally raises the per-month sequence
// counters past the highest imported numbers so future allocations cannot
// collide with them.
func importLegacyOrders(ctx context.Context, pool *pgxpool.Pool, redisAddr, path string) error {
	slog.Info("importing legacy orders", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open legacy export")
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "open gzip stream")
	}
	defer gz.Close()

	orders := repository.NewOrderRepository(pool)

	var (
		mu      sync.Mutex
		maxSeq  = make(map[scope]int64)
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan *order.Order)

	for range importWorkers {
		g.Go(func() error {
			for o := range jobs {
				err := orders.Create(gctx, o)
				switch {
				case err == nil:
				case errors.Is(err, order.ErrDuplicateNumber):
					// Already imported on a previous run.
					mu.Lock()
					skipped++
					mu.Unlock()
					continue
				default:
					return errors.Wrapf(err, "insert %s", o.OrderNumber)
				}

				year, month, seq, err := order.ParseNumber(o.OrderNumber)
				if err != nil {
					return errors.Wrapf(err, "parse %s", o.OrderNumber)
				}
				mu.Lock()
				key := scope{year: year, month: month}
				if seq > maxSeq[key] {
					maxSeq[key] = seq
				}
				mu.Unlock()
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)

		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if len(scanner.Bytes()) == 0 {
				continue
			}

			var legacy legacyOrder
			if err := json.Unmarshal(scanner.Bytes(), &legacy); err != nil {
				return errors.Wrapf(err, "parse line %d", lineNo)
			}

			o, err := convertLegacy(&legacy)
			if err != nil {
				return errors.Wrapf(err, "line %d (%s)", lineNo, legacy.OrderNumber)
			}

			select {
			case jobs <- o:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return errors.Wrap(scanner.Err(), "read legacy export")
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if err := advanceCounters(ctx, pool, redisAddr, maxSeq); err != nil {
		return errors.Wrap(err, "advance counters")
	}

	slog.Info("legacy import done",
		slog.Int("months", len(maxSeq)),
		slog.Int("skipped_duplicates", skipped))
	return nil
}

// convertLegacy rebuilds the order aggregate from a legacy record,
// recomputing all monetary figures from the lines. The legacy total is only
// accepted when it agrees with the recomputation within the tolerance.
func convertLegacy(legacy *legacyOrder) (*order.Order, error) {
	if _, _, _, err := order.ParseNumber(legacy.OrderNumber); err != nil {
		return nil, err
	}

	discountType := order.DiscountType(legacy.DiscountType)
	if legacy.DiscountType == "" {
		discountType = order.DiscountFixed
	}

	pricing, err := order.ComputePricing(
		legacy.Lines, legacy.TaxRate, order.Zone(legacy.DeliveryZone),
		legacy.Discount, discountType,
	)
	if err != nil {
		return nil, err
	}

	if legacy.Total.Sub(pricing.Total).Abs().GreaterThan(order.Tolerance) {
		return nil, errors.Errorf("total %s disagrees with recomputed %s",
			legacy.Total.StringFixed(2), pricing.Total.StringFixed(2))
	}

	status := order.Status(legacy.Status)
	if legacy.Status == "" {
		status = order.StatusDelivered
	}
	payStatus := order.PaymentStatus(legacy.PaymentStatus)
	if legacy.PaymentStatus == "" {
		payStatus = order.PaymentPaid
	}
	createdBy := legacy.CreatedBy
	if createdBy == "" {
		createdBy = "legacy-import"
	}

	return &order.Order{
		OrderNumber:   legacy.OrderNumber,
		CustomerRef:   legacy.CustomerRef,
		Lines:         legacy.Lines,
		Subtotal:      pricing.Subtotal,
		Tax:           pricing.Tax,
		TaxRate:       legacy.TaxRate,
		Discount:      pricing.DiscountAmount,
		DiscountType:  discountType,
		ShippingCost:  pricing.ShippingCost,
		Total:         pricing.Total,
		DeliveryZone:  order.Zone(legacy.DeliveryZone),
		Status:        status,
		PaymentStatus: payStatus,
		PaymentMethod: legacy.PaymentMethod,
		PaymentRef:    legacy.PaymentRef,
		Billing:       legacy.Billing,
		Delivery:      legacy.Delivery,
		CreatedBy:     createdBy,
		CreatedAt:     legacy.CreatedAt,
		UpdatedAt:     legacy.CreatedAt,
	}, nil
}

// advanceCounters raises the sequence counters to the highest imported
// value per month, on Redis too when the API allocates from Redis.
func advanceCounters(ctx context.Context, pool *pgxpool.Pool, redisAddr string, maxSeq map[scope]int64) error {
	pgSeq := repository.NewPostgresSequence(pool)

	var redisSeq *repository.RedisSequence
	if redisAddr != "" {
		redisSeq = repository.NewRedisSequence(redisAddr)
		defer redisSeq.Close()
	}

	for key, seq := range maxSeq {
		if err := pgSeq.Advance(ctx, key.year, key.month, seq); err != nil {
			return err
		}
		if redisSeq != nil {
			if err := redisSeq.Advance(ctx, key.year, key.month, seq); err != nil {
				return err
			}
		}
		slog.Info("advanced counter",
			slog.Int("year", key.year),
			slog.Int("month", int(key.month)),
			slog.Int64("seq", seq))
	}
	return nil
}
