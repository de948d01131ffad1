package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fasaldhan/fasaldhan-cli/internal/db"
	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., bulk price imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS crops (
	id                     BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name                   TEXT NOT NULL,
	category               TEXT NOT NULL,
	variety                TEXT NOT NULL DEFAULT '',
	scientific_name        TEXT NOT NULL DEFAULT '',
	growing_season         TEXT NOT NULL DEFAULT '',
	harvest_time_days      INTEGER NOT NULL DEFAULT 0,
	average_yield_per_acre DOUBLE PRECISION,
	current_market_price   DOUBLE PRECISION,
	price_volatility_score DOUBLE PRECISION,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS market_prices (
	id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	crop_id           BIGINT NOT NULL REFERENCES crops(id),
	location          TEXT NOT NULL,
	market_name       TEXT NOT NULL DEFAULT '',
	price_per_quintal DOUBLE PRECISION NOT NULL,
	date              TIMESTAMPTZ NOT NULL,
	season            TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS listings (
	id                      TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	farmer_id               BIGINT NOT NULL,
	crop_id                 BIGINT NOT NULL REFERENCES crops(id),
	quantity_available      DOUBLE PRECISION NOT NULL,
	expected_price          DOUBLE PRECISION NOT NULL,
	quality_grade           TEXT NOT NULL DEFAULT '',
	organic_certified       BOOLEAN NOT NULL DEFAULT false,
	harvest_date            TIMESTAMPTZ NOT NULL,
	farm_location           TEXT NOT NULL DEFAULT '',
	status                  TEXT NOT NULL DEFAULT 'draft',
	description             TEXT NOT NULL DEFAULT '',
	ai_quality_score        DOUBLE PRECISION,
	ai_price_recommendation DOUBLE PRECISION,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contracts (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	listing_id        TEXT NOT NULL REFERENCES listings(id),
	buyer_id          BIGINT NOT NULL,
	farmer_id         BIGINT NOT NULL,
	agreed_quantity   DOUBLE PRECISION NOT NULL,
	agreed_price      DOUBLE PRECISION NOT NULL,
	total_value       DOUBLE PRECISION NOT NULL,
	expected_delivery TIMESTAMPTZ NOT NULL,
	actual_delivery   TIMESTAMPTZ,
	payment_terms     TEXT NOT NULL DEFAULT 'on_delivery',
	delivery_location TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'pending',
	completion_pct    DOUBLE PRECISION NOT NULL DEFAULT 0,
	ai_risk_score     DOUBLE PRECISION,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contract_progress (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	contract_id TEXT NOT NULL REFERENCES contracts(id),
	percentage  DOUBLE PRECISION NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	updated_by  BIGINT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reviews (
	id                   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	contract_id          TEXT NOT NULL UNIQUE REFERENCES contracts(id),
	reviewer_id          BIGINT NOT NULL,
	reviewee_id          BIGINT NOT NULL,
	overall_rating       INTEGER NOT NULL,
	quality_rating       INTEGER,
	communication_rating INTEGER,
	timeliness_rating    INTEGER,
	review_text          TEXT NOT NULL DEFAULT '',
	would_recommend      BOOLEAN NOT NULL DEFAULT true,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_market_prices_crop_date ON market_prices(crop_id, date DESC);
CREATE UNIQUE INDEX IF NOT EXISTS uq_market_prices_crop_market_date ON market_prices(crop_id, market_name, date);
CREATE INDEX IF NOT EXISTS idx_market_prices_created ON market_prices(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_listings_farmer ON listings(farmer_id);
CREATE INDEX IF NOT EXISTS idx_listings_crop_status ON listings(crop_id, status);
CREATE INDEX IF NOT EXISTS idx_contracts_farmer ON contracts(farmer_id);
CREATE INDEX IF NOT EXISTS idx_contracts_buyer ON contracts(buyer_id);
CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
CREATE INDEX IF NOT EXISTS idx_progress_contract ON contract_progress(contract_id);
CREATE INDEX IF NOT EXISTS idx_reviews_reviewee ON reviews(reviewee_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Crops

func (s *PostgresStore) CreateCrop(ctx context.Context, crop *model.Crop) (*model.Crop, error) {
	now := time.Now().UTC()
	out := *crop
	err := s.pool.QueryRow(ctx,
		`INSERT INTO crops (name, category, variety, scientific_name, growing_season,
			harvest_time_days, average_yield_per_acre, current_market_price,
			price_volatility_score, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		crop.Name, crop.Category, crop.Variety, crop.ScientificName, crop.GrowingSeason,
		crop.HarvestDays, crop.AverageYieldPerAcre, crop.CurrentMarketPrice,
		crop.PriceVolatilityScore, now, now,
	).Scan(&out.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert crop %s", crop.Name)
	}
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *PostgresStore) GetCrop(ctx context.Context, id int64) (*model.Crop, error) {
	var c model.Crop
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, category, variety, scientific_name, growing_season,
			harvest_time_days, average_yield_per_acre, current_market_price,
			price_volatility_score, created_at, updated_at
		 FROM crops WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Category, &c.Variety, &c.ScientificName, &c.GrowingSeason,
		&c.HarvestDays, &c.AverageYieldPerAcre, &c.CurrentMarketPrice,
		&c.PriceVolatilityScore, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("crop not found: %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: get crop %d", id)
	}
	return &c, nil
}

func (s *PostgresStore) ListCrops(ctx context.Context, filter CropFilter) ([]model.Crop, error) {
	query := `SELECT id, name, category, variety, scientific_name, growing_season,
		harvest_time_days, average_yield_per_acre, current_market_price,
		price_volatility_score, created_at, updated_at
	 FROM crops WHERE true`
	args := []any{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND category = ` + arg(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		p := arg(len(args))
		query += ` AND (name ILIKE ` + p + ` OR variety ILIKE ` + p + `)`
	}
	args = append(args, normalizeLimit(filter.Limit))
	query += ` ORDER BY name ASC LIMIT ` + arg(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list crops")
	}
	defer rows.Close()

	var crops []model.Crop
	for rows.Next() {
		var c model.Crop
		err := rows.Scan(&c.ID, &c.Name, &c.Category, &c.Variety, &c.ScientificName,
			&c.GrowingSeason, &c.HarvestDays, &c.AverageYieldPerAcre,
			&c.CurrentMarketPrice, &c.PriceVolatilityScore, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan crop")
		}
		crops = append(crops, c)
	}
	return crops, eris.Wrap(rows.Err(), "postgres: list crops iterate")
}

// Market prices

func (s *PostgresStore) AddMarketPrice(ctx context.Context, price *model.MarketPrice) (*model.MarketPrice, error) {
	now := time.Now().UTC()
	out := *price
	err := s.pool.QueryRow(ctx,
		`INSERT INTO market_prices (crop_id, location, market_name, price_per_quintal, date, season, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (crop_id, market_name, date) DO UPDATE
		 SET location = EXCLUDED.location, price_per_quintal = EXCLUDED.price_per_quintal,
		     season = EXCLUDED.season
		 RETURNING id`,
		price.CropID, price.Location, price.MarketName, price.PricePerQuintal,
		price.Date.UTC(), price.Season, now,
	).Scan(&out.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert market price for crop %d", price.CropID)
	}
	out.CreatedAt = now
	return &out, nil
}

func (s *PostgresStore) RecentPrices(ctx context.Context, cropID int64, since time.Time) ([]model.MarketPrice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, crop_id, location, market_name, price_per_quintal, date, season, created_at
		 FROM market_prices
		 WHERE crop_id = $1 AND date >= $2
		 ORDER BY date DESC`,
		cropID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: recent prices for crop %d", cropID)
	}
	defer rows.Close()
	return collectPgPrices(rows)
}

func (s *PostgresStore) PriceHistory(ctx context.Context, cropID int64, limit int) ([]model.MarketPrice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, crop_id, location, market_name, price_per_quintal, date, season, created_at
		 FROM market_prices
		 WHERE crop_id = $1
		 ORDER BY date DESC LIMIT $2`,
		cropID, normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: price history for crop %d", cropID)
	}
	defer rows.Close()
	return collectPgPrices(rows)
}

func (s *PostgresStore) RecentPriceUpdates(ctx context.Context, since time.Time, limit int) ([]model.MarketPrice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, crop_id, location, market_name, price_per_quintal, date, season, created_at
		 FROM market_prices
		 WHERE created_at >= $1
		 ORDER BY created_at DESC LIMIT $2`,
		since.UTC(), normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent price updates")
	}
	defer rows.Close()
	return collectPgPrices(rows)
}

func (s *PostgresStore) TrendingCrops(ctx context.Context, limit int) ([]model.CropTrend, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.name, c.category, c.variety, c.scientific_name, c.growing_season,
			c.harvest_time_days, c.average_yield_per_acre, c.current_market_price,
			c.price_volatility_score, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM listings l WHERE l.crop_id = c.id AND l.status = 'active') AS listing_count,
			COALESCE((SELECT AVG(mp.price_per_quintal) FROM market_prices mp WHERE mp.crop_id = c.id), 0) AS avg_price
		 FROM crops c
		 ORDER BY listing_count DESC, c.name ASC
		 LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: trending crops")
	}
	defer rows.Close()

	var trends []model.CropTrend
	for rows.Next() {
		var t model.CropTrend
		err := rows.Scan(
			&t.Crop.ID, &t.Crop.Name, &t.Crop.Category, &t.Crop.Variety,
			&t.Crop.ScientificName, &t.Crop.GrowingSeason, &t.Crop.HarvestDays,
			&t.Crop.AverageYieldPerAcre, &t.Crop.CurrentMarketPrice,
			&t.Crop.PriceVolatilityScore, &t.Crop.CreatedAt, &t.Crop.UpdatedAt,
			&t.ListingCount, &t.AvgPrice,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan crop trend")
		}
		trends = append(trends, t)
	}
	return trends, eris.Wrap(rows.Err(), "postgres: trending crops iterate")
}

// Listings

func (s *PostgresStore) CreateListing(ctx context.Context, listing *model.CropListing) (*model.CropListing, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	status := listing.Status
	if status == "" {
		status = model.ListingStatusDraft
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO listings (id, farmer_id, crop_id, quantity_available, expected_price,
			quality_grade, organic_certified, harvest_date, farm_location, status,
			description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, listing.FarmerID, listing.CropID, listing.QuantityAvailable, listing.ExpectedPrice,
		string(listing.QualityGrade), listing.OrganicCertified, listing.HarvestDate.UTC(),
		listing.FarmLocation, string(status), listing.Description, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert listing for farmer %d", listing.FarmerID)
	}

	out := *listing
	out.ID = id
	out.Status = status
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*model.CropListing, error) {
	var l model.CropListing
	var grade string
	err := s.pool.QueryRow(ctx,
		`SELECT id, farmer_id, crop_id, quantity_available, expected_price, quality_grade,
			organic_certified, harvest_date, farm_location, status, description,
			ai_quality_score, ai_price_recommendation, created_at, updated_at
		 FROM listings WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.FarmerID, &l.CropID, &l.QuantityAvailable, &l.ExpectedPrice, &grade,
		&l.OrganicCertified, &l.HarvestDate, &l.FarmLocation, &l.Status, &l.Description,
		&l.AIQualityScore, &l.AIPriceRecommendation, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("listing not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get listing %s", id)
	}
	l.QualityGrade = model.QualityGrade(grade)
	return &l, nil
}

func (s *PostgresStore) ListListings(ctx context.Context, filter ListingFilter) ([]model.CropListing, error) {
	query := `SELECT id, farmer_id, crop_id, quantity_available, expected_price, quality_grade,
		organic_certified, harvest_date, farm_location, status, description,
		ai_quality_score, ai_price_recommendation, created_at, updated_at
	 FROM listings WHERE true`
	args := []any{}

	if filter.FarmerID != 0 {
		args = append(args, filter.FarmerID)
		query += ` AND farmer_id = ` + arg(len(args))
	}
	if filter.CropID != 0 {
		args = append(args, filter.CropID)
		query += ` AND crop_id = ` + arg(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = ` + arg(len(args))
	}
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		query += ` AND farm_location ILIKE ` + arg(len(args))
	}
	args = append(args, normalizeLimit(filter.Limit))
	query += ` ORDER BY created_at DESC LIMIT ` + arg(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list listings")
	}
	defer rows.Close()

	var listings []model.CropListing
	for rows.Next() {
		var l model.CropListing
		var grade string
		err := rows.Scan(&l.ID, &l.FarmerID, &l.CropID, &l.QuantityAvailable, &l.ExpectedPrice,
			&grade, &l.OrganicCertified, &l.HarvestDate, &l.FarmLocation, &l.Status,
			&l.Description, &l.AIQualityScore, &l.AIPriceRecommendation, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		l.QualityGrade = model.QualityGrade(grade)
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "postgres: list listings iterate")
}

func (s *PostgresStore) UpdateListingStatus(ctx context.Context, id string, status model.ListingStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update listing status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("listing not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetListingInsights(ctx context.Context, id string, qualityScore, priceRecommendation float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET ai_quality_score = $1, ai_price_recommendation = $2, updated_at = $3 WHERE id = $4`,
		qualityScore, priceRecommendation, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set listing insights %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("listing not found: %s", id)
	}
	return nil
}

// Contracts

func (s *PostgresStore) CreateContract(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	status := contract.Status
	if status == "" {
		status = model.ContractStatusPending
	}
	totalValue := contract.TotalValue
	if totalValue == 0 {
		totalValue = contract.AgreedQuantity * contract.AgreedPrice
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO contracts (id, listing_id, buyer_id, farmer_id, agreed_quantity,
			agreed_price, total_value, expected_delivery, payment_terms,
			delivery_location, status, completion_pct, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, contract.ListingID, contract.BuyerID, contract.FarmerID, contract.AgreedQuantity,
		contract.AgreedPrice, totalValue, contract.ExpectedDelivery.UTC(),
		string(contract.PaymentTerms), contract.DeliveryLocation, string(status),
		contract.CompletionPct, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert contract on listing %s", contract.ListingID)
	}

	out := *contract
	out.ID = id
	out.Status = status
	out.TotalValue = totalValue
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *PostgresStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	var c model.Contract
	err := s.pool.QueryRow(ctx,
		`SELECT id, listing_id, buyer_id, farmer_id, agreed_quantity, agreed_price,
			total_value, expected_delivery, actual_delivery, payment_terms,
			delivery_location, status, completion_pct, ai_risk_score, created_at, updated_at
		 FROM contracts WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.ListingID, &c.BuyerID, &c.FarmerID, &c.AgreedQuantity, &c.AgreedPrice,
		&c.TotalValue, &c.ExpectedDelivery, &c.ActualDelivery, &c.PaymentTerms,
		&c.DeliveryLocation, &c.Status, &c.CompletionPct, &c.AIRiskScore,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("contract not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get contract %s", id)
	}
	return &c, nil
}

func (s *PostgresStore) ListContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, error) {
	query := `SELECT id, listing_id, buyer_id, farmer_id, agreed_quantity, agreed_price,
		total_value, expected_delivery, actual_delivery, payment_terms,
		delivery_location, status, completion_pct, ai_risk_score, created_at, updated_at
	 FROM contracts WHERE true`
	args := []any{}

	if filter.FarmerID != 0 {
		args = append(args, filter.FarmerID)
		query += ` AND farmer_id = ` + arg(len(args))
	}
	if filter.BuyerID != 0 {
		args = append(args, filter.BuyerID)
		query += ` AND buyer_id = ` + arg(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = ` + arg(len(args))
	}
	args = append(args, normalizeLimit(filter.Limit))
	query += ` ORDER BY created_at DESC LIMIT ` + arg(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contracts")
	}
	defer rows.Close()

	var contracts []model.Contract
	for rows.Next() {
		var c model.Contract
		err := rows.Scan(&c.ID, &c.ListingID, &c.BuyerID, &c.FarmerID, &c.AgreedQuantity,
			&c.AgreedPrice, &c.TotalValue, &c.ExpectedDelivery, &c.ActualDelivery,
			&c.PaymentTerms, &c.DeliveryLocation, &c.Status, &c.CompletionPct,
			&c.AIRiskScore, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contract")
		}
		contracts = append(contracts, c)
	}
	return contracts, eris.Wrap(rows.Err(), "postgres: list contracts iterate")
}

func (s *PostgresStore) AddProgress(ctx context.Context, progress *model.ContractProgress) (*model.ContractProgress, error) {
	now := time.Now().UTC()
	recordedAt := progress.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}

	out := *progress
	err := s.pool.QueryRow(ctx,
		`INSERT INTO contract_progress (contract_id, percentage, notes, updated_by, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		progress.ContractID, progress.Percentage, progress.Notes, progress.UpdatedBy, recordedAt.UTC(),
	).Scan(&out.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert progress for contract %s", progress.ContractID)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE contracts SET completion_pct = $1, status = $2, updated_at = $3 WHERE id = $4`,
		progress.Percentage, string(model.ContractStatusInProgress), now, progress.ContractID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update contract completion %s", progress.ContractID)
	}

	out.RecordedAt = recordedAt
	return &out, nil
}

func (s *PostgresStore) ListProgress(ctx context.Context, contractID string) ([]model.ContractProgress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, contract_id, percentage, notes, updated_by, recorded_at
		 FROM contract_progress
		 WHERE contract_id = $1
		 ORDER BY recorded_at ASC`,
		contractID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list progress for contract %s", contractID)
	}
	defer rows.Close()

	var updates []model.ContractProgress
	for rows.Next() {
		var p model.ContractProgress
		if err := rows.Scan(&p.ID, &p.ContractID, &p.Percentage, &p.Notes, &p.UpdatedBy, &p.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan progress")
		}
		updates = append(updates, p)
	}
	return updates, eris.Wrap(rows.Err(), "postgres: list progress iterate")
}

func (s *PostgresStore) CompleteContract(ctx context.Context, id string, deliveredAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE contracts SET status = $1, actual_delivery = $2, completion_pct = 100, updated_at = $3 WHERE id = $4`,
		string(model.ContractStatusCompleted), deliveredAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete contract %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contract not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetContractRisk(ctx context.Context, id string, score float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE contracts SET ai_risk_score = $1, updated_at = $2 WHERE id = $3`,
		score, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set contract risk %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contract not found: %s", id)
	}
	return nil
}

// Reviews

func (s *PostgresStore) CreateReview(ctx context.Context, review *model.Review) (*model.Review, error) {
	now := time.Now().UTC()
	out := *review
	err := s.pool.QueryRow(ctx,
		`INSERT INTO reviews (contract_id, reviewer_id, reviewee_id, overall_rating,
			quality_rating, communication_rating, timeliness_rating, review_text,
			would_recommend, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		review.ContractID, review.ReviewerID, review.RevieweeID, review.OverallRating,
		review.QualityRating, review.CommunicationRating, review.TimelinessRating,
		review.Text, review.WouldRecommend, now,
	).Scan(&out.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert review for contract %s", review.ContractID)
	}
	out.CreatedAt = now
	return &out, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	query := `SELECT id, contract_id, reviewer_id, reviewee_id, overall_rating,
		quality_rating, communication_rating, timeliness_rating, review_text,
		would_recommend, created_at
	 FROM reviews WHERE true`
	args := []any{}

	if filter.RevieweeID != 0 {
		args = append(args, filter.RevieweeID)
		query += ` AND reviewee_id = ` + arg(len(args))
	}
	if filter.ReviewerID != 0 {
		args = append(args, filter.ReviewerID)
		query += ` AND reviewer_id = ` + arg(len(args))
	}
	args = append(args, normalizeLimit(filter.Limit))
	query += ` ORDER BY created_at DESC LIMIT ` + arg(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		err := rows.Scan(&r.ID, &r.ContractID, &r.ReviewerID, &r.RevieweeID, &r.OverallRating,
			&r.QualityRating, &r.CommunicationRating, &r.TimelinessRating, &r.Text,
			&r.WouldRecommend, &r.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		reviews = append(reviews, r)
	}
	return reviews, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}

// Derived views

func (s *PostgresStore) PartyHistory(ctx context.Context, partyID int64, role string) (model.PartyHistory, error) {
	column, err := partyColumn(role)
	if err != nil {
		return model.PartyHistory{}, err
	}

	var h model.PartyHistory
	err = s.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*)
		 FROM contracts WHERE `+column+` = $1`,
		partyID,
	).Scan(&h.CompletedCount, &h.TotalCount)
	if err != nil {
		return model.PartyHistory{}, eris.Wrapf(err, "postgres: party history for %s %d", role, partyID)
	}
	return h, nil
}

func (s *PostgresStore) FarmerStats(ctx context.Context, farmerID int64) (*FarmerStats, error) {
	var st FarmerStats
	err := s.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM listings WHERE farmer_id = $1),
			(SELECT COUNT(*) FROM listings WHERE farmer_id = $1 AND status = 'active'),
			(SELECT COUNT(*) FROM contracts WHERE farmer_id = $1 AND status IN ('active', 'in_progress')),
			(SELECT COUNT(*) FROM contracts WHERE farmer_id = $1 AND status = 'completed'),
			(SELECT COALESCE(SUM(total_value), 0) FROM contracts WHERE farmer_id = $1 AND status = 'completed')`,
		farmerID,
	).Scan(&st.TotalListings, &st.ActiveListings, &st.ActiveContracts, &st.CompletedContracts, &st.TotalEarnings)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: farmer stats %d", farmerID)
	}
	return &st, nil
}

func (s *PostgresStore) BuyerStats(ctx context.Context, buyerID int64) (*BuyerStats, error) {
	var st BuyerStats
	err := s.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM contracts WHERE buyer_id = $1),
			(SELECT COUNT(*) FROM contracts WHERE buyer_id = $1 AND status IN ('active', 'in_progress')),
			(SELECT COUNT(*) FROM contracts WHERE buyer_id = $1 AND status = 'completed'),
			(SELECT COALESCE(SUM(total_value), 0) FROM contracts WHERE buyer_id = $1 AND status = 'completed')`,
		buyerID,
	).Scan(&st.TotalContracts, &st.ActiveContracts, &st.CompletedContracts, &st.TotalSpent)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: buyer stats %d", buyerID)
	}
	return &st, nil
}

func (s *PostgresStore) MarketSummary(ctx context.Context) (*MarketSummary, error) {
	var sum MarketSummary
	err := s.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM listings WHERE status = 'active'),
			(SELECT COUNT(*) FROM contracts WHERE status IN ('active', 'in_progress')),
			(SELECT COALESCE(AVG(total_value), 0) FROM contracts)`,
	).Scan(&sum.ActiveListings, &sum.ActiveContracts, &sum.AvgContractValue)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: market summary")
	}
	return &sum, nil
}

func collectPgPrices(rows pgx.Rows) ([]model.MarketPrice, error) {
	var prices []model.MarketPrice
	for rows.Next() {
		var p model.MarketPrice
		err := rows.Scan(&p.ID, &p.CropID, &p.Location, &p.MarketName,
			&p.PricePerQuintal, &p.Date, &p.Season, &p.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan market price")
		}
		prices = append(prices, p)
	}
	return prices, eris.Wrap(rows.Err(), "postgres: prices iterate")
}

// arg returns the positional placeholder for the n-th argument.
func arg(n int) string {
	return fmt.Sprintf("$%d", n)
}
