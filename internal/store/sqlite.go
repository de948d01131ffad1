package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS crops (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	name                   TEXT NOT NULL,
	category               TEXT NOT NULL,
	variety                TEXT NOT NULL DEFAULT '',
	scientific_name        TEXT NOT NULL DEFAULT '',
	growing_season         TEXT NOT NULL DEFAULT '',
	harvest_time_days      INTEGER NOT NULL DEFAULT 0,
	average_yield_per_acre REAL,
	current_market_price   REAL,
	price_volatility_score REAL,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS market_prices (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	crop_id           INTEGER NOT NULL REFERENCES crops(id),
	location          TEXT NOT NULL,
	market_name       TEXT NOT NULL DEFAULT '',
	price_per_quintal REAL NOT NULL,
	date              DATETIME NOT NULL,
	season            TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS listings (
	id                      TEXT PRIMARY KEY,
	farmer_id               INTEGER NOT NULL,
	crop_id                 INTEGER NOT NULL REFERENCES crops(id),
	quantity_available      REAL NOT NULL,
	expected_price          REAL NOT NULL,
	quality_grade           TEXT NOT NULL DEFAULT '',
	organic_certified       INTEGER NOT NULL DEFAULT 0,
	harvest_date            DATETIME NOT NULL,
	farm_location           TEXT NOT NULL DEFAULT '',
	status                  TEXT NOT NULL DEFAULT 'draft',
	description             TEXT NOT NULL DEFAULT '',
	ai_quality_score        REAL,
	ai_price_recommendation REAL,
	created_at              DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at              DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contracts (
	id                TEXT PRIMARY KEY,
	listing_id        TEXT NOT NULL REFERENCES listings(id),
	buyer_id          INTEGER NOT NULL,
	farmer_id         INTEGER NOT NULL,
	agreed_quantity   REAL NOT NULL,
	agreed_price      REAL NOT NULL,
	total_value       REAL NOT NULL,
	expected_delivery DATETIME NOT NULL,
	actual_delivery   DATETIME,
	payment_terms     TEXT NOT NULL DEFAULT 'on_delivery',
	delivery_location TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'pending',
	completion_pct    REAL NOT NULL DEFAULT 0,
	ai_risk_score     REAL,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contract_progress (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	contract_id TEXT NOT NULL REFERENCES contracts(id),
	percentage  REAL NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	updated_by  INTEGER NOT NULL,
	recorded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reviews (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	contract_id          TEXT NOT NULL UNIQUE REFERENCES contracts(id),
	reviewer_id          INTEGER NOT NULL,
	reviewee_id          INTEGER NOT NULL,
	overall_rating       INTEGER NOT NULL,
	quality_rating       INTEGER,
	communication_rating INTEGER,
	timeliness_rating    INTEGER,
	review_text          TEXT NOT NULL DEFAULT '',
	would_recommend      INTEGER NOT NULL DEFAULT 1,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_market_prices_crop_date ON market_prices(crop_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_market_prices_created ON market_prices(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_listings_farmer ON listings(farmer_id);
CREATE INDEX IF NOT EXISTS idx_listings_crop_status ON listings(crop_id, status);
CREATE INDEX IF NOT EXISTS idx_contracts_farmer ON contracts(farmer_id);
CREATE INDEX IF NOT EXISTS idx_contracts_buyer ON contracts(buyer_id);
CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
CREATE INDEX IF NOT EXISTS idx_progress_contract ON contract_progress(contract_id);
CREATE INDEX IF NOT EXISTS idx_reviews_reviewee ON reviews(reviewee_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Crops

const cropColumns = `id, name, category, variety, scientific_name, growing_season,
	harvest_time_days, average_yield_per_acre, current_market_price,
	price_volatility_score, created_at, updated_at`

func (s *SQLiteStore) CreateCrop(ctx context.Context, crop *model.Crop) (*model.Crop, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO crops (name, category, variety, scientific_name, growing_season,
			harvest_time_days, average_yield_per_acre, current_market_price,
			price_volatility_score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		crop.Name, crop.Category, crop.Variety, crop.ScientificName, crop.GrowingSeason,
		crop.HarvestDays, crop.AverageYieldPerAcre, crop.CurrentMarketPrice,
		crop.PriceVolatilityScore, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert crop %s", crop.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: crop last insert id")
	}

	out := *crop
	out.ID = id
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *SQLiteStore) GetCrop(ctx context.Context, id int64) (*model.Crop, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cropColumns+` FROM crops WHERE id = ?`, id)
	return scanCrop(row, id)
}

func (s *SQLiteStore) ListCrops(ctx context.Context, filter CropFilter) ([]model.Crop, error) {
	query := `SELECT ` + cropColumns + ` FROM crops WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		query += ` AND (name LIKE ? OR variety LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY name ASC LIMIT ?`
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list crops")
	}
	defer rows.Close()

	var crops []model.Crop
	for rows.Next() {
		c, err := scanCrop(rows, 0)
		if err != nil {
			return nil, err
		}
		crops = append(crops, *c)
	}
	return crops, eris.Wrap(rows.Err(), "sqlite: list crops iterate")
}

// Market prices

const priceColumns = `id, crop_id, location, market_name, price_per_quintal, date, season, created_at`

func (s *SQLiteStore) AddMarketPrice(ctx context.Context, price *model.MarketPrice) (*model.MarketPrice, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO market_prices (crop_id, location, market_name, price_per_quintal, date, season, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		price.CropID, price.Location, price.MarketName, price.PricePerQuintal,
		price.Date.UTC(), price.Season, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert market price for crop %d", price.CropID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: price last insert id")
	}

	out := *price
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

func (s *SQLiteStore) RecentPrices(ctx context.Context, cropID int64, since time.Time) ([]model.MarketPrice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+priceColumns+` FROM market_prices
		 WHERE crop_id = ? AND date >= ?
		 ORDER BY date DESC`,
		cropID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: recent prices for crop %d", cropID)
	}
	defer rows.Close()
	return collectPrices(rows)
}

func (s *SQLiteStore) PriceHistory(ctx context.Context, cropID int64, limit int) ([]model.MarketPrice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+priceColumns+` FROM market_prices
		 WHERE crop_id = ?
		 ORDER BY date DESC LIMIT ?`,
		cropID, normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: price history for crop %d", cropID)
	}
	defer rows.Close()
	return collectPrices(rows)
}

func (s *SQLiteStore) RecentPriceUpdates(ctx context.Context, since time.Time, limit int) ([]model.MarketPrice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+priceColumns+` FROM market_prices
		 WHERE created_at >= ?
		 ORDER BY created_at DESC LIMIT ?`,
		since.UTC(), normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent price updates")
	}
	defer rows.Close()
	return collectPrices(rows)
}

func (s *SQLiteStore) TrendingCrops(ctx context.Context, limit int) ([]model.CropTrend, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cropColumns+`,
			(SELECT COUNT(*) FROM listings l WHERE l.crop_id = crops.id AND l.status = 'active') AS listing_count,
			COALESCE((SELECT AVG(mp.price_per_quintal) FROM market_prices mp WHERE mp.crop_id = crops.id), 0) AS avg_price
		 FROM crops
		 ORDER BY listing_count DESC, name ASC
		 LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: trending crops")
	}
	defer rows.Close()

	var trends []model.CropTrend
	for rows.Next() {
		var t model.CropTrend
		var avgYield, marketPrice, volatility sql.NullFloat64
		err := rows.Scan(
			&t.Crop.ID, &t.Crop.Name, &t.Crop.Category, &t.Crop.Variety,
			&t.Crop.ScientificName, &t.Crop.GrowingSeason, &t.Crop.HarvestDays,
			&avgYield, &marketPrice, &volatility,
			&t.Crop.CreatedAt, &t.Crop.UpdatedAt,
			&t.ListingCount, &t.AvgPrice,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan crop trend")
		}
		t.Crop.AverageYieldPerAcre = nullFloat(avgYield)
		t.Crop.CurrentMarketPrice = nullFloat(marketPrice)
		t.Crop.PriceVolatilityScore = nullFloat(volatility)
		trends = append(trends, t)
	}
	return trends, eris.Wrap(rows.Err(), "sqlite: trending crops iterate")
}

// Listings

const listingColumns = `id, farmer_id, crop_id, quantity_available, expected_price,
	quality_grade, organic_certified, harvest_date, farm_location, status,
	description, ai_quality_score, ai_price_recommendation, created_at, updated_at`

func (s *SQLiteStore) CreateListing(ctx context.Context, listing *model.CropListing) (*model.CropListing, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	status := listing.Status
	if status == "" {
		status = model.ListingStatusDraft
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (id, farmer_id, crop_id, quantity_available, expected_price,
			quality_grade, organic_certified, harvest_date, farm_location, status,
			description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, listing.FarmerID, listing.CropID, listing.QuantityAvailable, listing.ExpectedPrice,
		string(listing.QualityGrade), listing.OrganicCertified, listing.HarvestDate.UTC(),
		listing.FarmLocation, string(status), listing.Description, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert listing for farmer %d", listing.FarmerID)
	}

	out := *listing
	out.ID = id
	out.Status = status
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *SQLiteStore) GetListing(ctx context.Context, id string) (*model.CropListing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	return scanListing(row, id)
}

func (s *SQLiteStore) ListListings(ctx context.Context, filter ListingFilter) ([]model.CropListing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE 1=1`
	var args []any

	if filter.FarmerID != 0 {
		query += ` AND farmer_id = ?`
		args = append(args, filter.FarmerID)
	}
	if filter.CropID != 0 {
		query += ` AND crop_id = ?`
		args = append(args, filter.CropID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Location != "" {
		query += ` AND farm_location LIKE ?`
		args = append(args, "%"+filter.Location+"%")
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list listings")
	}
	defer rows.Close()

	var listings []model.CropListing
	for rows.Next() {
		l, err := scanListing(rows, "")
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, eris.Wrap(rows.Err(), "sqlite: list listings iterate")
}

func (s *SQLiteStore) UpdateListingStatus(ctx context.Context, id string, status model.ListingStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update listing status %s", id)
	}
	return checkRowsAffected(res, "listing", id)
}

func (s *SQLiteStore) SetListingInsights(ctx context.Context, id string, qualityScore, priceRecommendation float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET ai_quality_score = ?, ai_price_recommendation = ?, updated_at = ? WHERE id = ?`,
		qualityScore, priceRecommendation, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set listing insights %s", id)
	}
	return checkRowsAffected(res, "listing", id)
}

// Contracts

const contractColumns = `id, listing_id, buyer_id, farmer_id, agreed_quantity, agreed_price,
	total_value, expected_delivery, actual_delivery, payment_terms, delivery_location,
	status, completion_pct, ai_risk_score, created_at, updated_at`

func (s *SQLiteStore) CreateContract(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contracts (id, listing_id, buyer_id, farmer_id, agreed_quantity,
			agreed_price, total_value, expected_delivery, payment_terms,
			delivery_location, status, completion_pct, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, contract.ListingID, contract.BuyerID, contract.FarmerID, contract.AgreedQuantity,
		contract.AgreedPrice, totalValue, contract.ExpectedDelivery.UTC(),
		string(contract.PaymentTerms), contract.DeliveryLocation, string(status),
		contract.CompletionPct, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert contract on listing %s", contract.ListingID)
	}

	out := *contract
	out.ID = id
	out.Status = status
	out.TotalValue = totalValue
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *SQLiteStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id)
	return scanContract(row, id)
}

func (s *SQLiteStore) ListContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE 1=1`
	var args []any

	if filter.FarmerID != 0 {
		query += ` AND farmer_id = ?`
		args = append(args, filter.FarmerID)
	}
	if filter.BuyerID != 0 {
		query += ` AND buyer_id = ?`
		args = append(args, filter.BuyerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contracts")
	}
	defer rows.Close()

	var contracts []model.Contract
	for rows.Next() {
		c, err := scanContract(rows, "")
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, eris.Wrap(rows.Err(), "sqlite: list contracts iterate")
}

func (s *SQLiteStore) AddProgress(ctx context.Context, progress *model.ContractProgress) (*model.ContractProgress, error) {
	now := time.Now().UTC()
	recordedAt := progress.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contract_progress (contract_id, percentage, notes, updated_by, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		progress.ContractID, progress.Percentage, progress.Notes, progress.UpdatedBy, recordedAt.UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert progress for contract %s", progress.ContractID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: progress last insert id")
	}

	// The contract mirrors its latest progress percentage.
	_, err = s.db.ExecContext(ctx,
		`UPDATE contracts SET completion_pct = ?, status = ?, updated_at = ? WHERE id = ?`,
		progress.Percentage, string(model.ContractStatusInProgress), now, progress.ContractID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update contract completion %s", progress.ContractID)
	}

	out := *progress
	out.ID = id
	out.RecordedAt = recordedAt
	return &out, nil
}

func (s *SQLiteStore) ListProgress(ctx context.Context, contractID string) ([]model.ContractProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, contract_id, percentage, notes, updated_by, recorded_at
		 FROM contract_progress
		 WHERE contract_id = ?
		 ORDER BY recorded_at ASC`,
		contractID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list progress for contract %s", contractID)
	}
	defer rows.Close()

	var updates []model.ContractProgress
	for rows.Next() {
		var p model.ContractProgress
		if err := rows.Scan(&p.ID, &p.ContractID, &p.Percentage, &p.Notes, &p.UpdatedBy, &p.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan progress")
		}
		updates = append(updates, p)
	}
	return updates, eris.Wrap(rows.Err(), "sqlite: list progress iterate")
}

func (s *SQLiteStore) CompleteContract(ctx context.Context, id string, deliveredAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contracts SET status = ?, actual_delivery = ?, completion_pct = 100, updated_at = ? WHERE id = ?`,
		string(model.ContractStatusCompleted), deliveredAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete contract %s", id)
	}
	return checkRowsAffected(res, "contract", id)
}

func (s *SQLiteStore) SetContractRisk(ctx context.Context, id string, score float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contracts SET ai_risk_score = ?, updated_at = ? WHERE id = ?`,
		score, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set contract risk %s", id)
	}
	return checkRowsAffected(res, "contract", id)
}

// Reviews

func (s *SQLiteStore) CreateReview(ctx context.Context, review *model.Review) (*model.Review, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (contract_id, reviewer_id, reviewee_id, overall_rating,
			quality_rating, communication_rating, timeliness_rating, review_text,
			would_recommend, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ContractID, review.ReviewerID, review.RevieweeID, review.OverallRating,
		review.QualityRating, review.CommunicationRating, review.TimelinessRating,
		review.Text, review.WouldRecommend, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert review for contract %s", review.ContractID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: review last insert id")
	}

	out := *review
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

func (s *SQLiteStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	query := `SELECT id, contract_id, reviewer_id, reviewee_id, overall_rating,
		quality_rating, communication_rating, timeliness_rating, review_text,
		would_recommend, created_at
	 FROM reviews WHERE 1=1`
	var args []any

	if filter.RevieweeID != 0 {
		query += ` AND reviewee_id = ?`
		args = append(args, filter.RevieweeID)
	}
	if filter.ReviewerID != 0 {
		query += ` AND reviewer_id = ?`
		args = append(args, filter.ReviewerID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		var quality, comm, timeliness sql.NullInt64
		err := rows.Scan(&r.ID, &r.ContractID, &r.ReviewerID, &r.RevieweeID, &r.OverallRating,
			&quality, &comm, &timeliness, &r.Text, &r.WouldRecommend, &r.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		r.QualityRating = nullInt(quality)
		r.CommunicationRating = nullInt(comm)
		r.TimelinessRating = nullInt(timeliness)
		reviews = append(reviews, r)
	}
	return reviews, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

// Derived views

func (s *SQLiteStore) PartyHistory(ctx context.Context, partyID int64, role string) (model.PartyHistory, error) {
	column, err := partyColumn(role)
	if err != nil {
		return model.PartyHistory{}, err
	}

	var h model.PartyHistory
	err = s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(CASE WHEN status = 'completed' THEN 1 END),
			COUNT(*)
		 FROM contracts WHERE `+column+` = ?`,
		partyID,
	).Scan(&h.CompletedCount, &h.TotalCount)
	if err != nil {
		return model.PartyHistory{}, eris.Wrapf(err, "sqlite: party history for %s %d", role, partyID)
	}
	return h, nil
}

func (s *SQLiteStore) FarmerStats(ctx context.Context, farmerID int64) (*FarmerStats, error) {
	var st FarmerStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM listings WHERE farmer_id = ?),
			(SELECT COUNT(*) FROM listings WHERE farmer_id = ? AND status = 'active'),
			(SELECT COUNT(*) FROM contracts WHERE farmer_id = ? AND status IN ('active', 'in_progress')),
			(SELECT COUNT(*) FROM contracts WHERE farmer_id = ? AND status = 'completed'),
			(SELECT COALESCE(SUM(total_value), 0) FROM contracts WHERE farmer_id = ? AND status = 'completed')`,
		farmerID, farmerID, farmerID, farmerID, farmerID,
	).Scan(&st.TotalListings, &st.ActiveListings, &st.ActiveContracts, &st.CompletedContracts, &st.TotalEarnings)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: farmer stats %d", farmerID)
	}
	return &st, nil
}

func (s *SQLiteStore) BuyerStats(ctx context.Context, buyerID int64) (*BuyerStats, error) {
	var st BuyerStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM contracts WHERE buyer_id = ?),
			(SELECT COUNT(*) FROM contracts WHERE buyer_id = ? AND status IN ('active', 'in_progress')),
			(SELECT COUNT(*) FROM contracts WHERE buyer_id = ? AND status = 'completed'),
			(SELECT COALESCE(SUM(total_value), 0) FROM contracts WHERE buyer_id = ? AND status = 'completed')`,
		buyerID, buyerID, buyerID, buyerID,
	).Scan(&st.TotalContracts, &st.ActiveContracts, &st.CompletedContracts, &st.TotalSpent)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: buyer stats %d", buyerID)
	}
	return &st, nil
}

func (s *SQLiteStore) MarketSummary(ctx context.Context) (*MarketSummary, error) {
	var sum MarketSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM listings WHERE status = 'active'),
			(SELECT COUNT(*) FROM contracts WHERE status IN ('active', 'in_progress')),
			(SELECT COALESCE(AVG(total_value), 0) FROM contracts)`,
	).Scan(&sum.ActiveListings, &sum.ActiveContracts, &sum.AvgContractValue)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: market summary")
	}
	return &sum, nil
}

// helpers

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func partyColumn(role string) (string, error) {
	switch role {
	case RoleFarmer:
		return "farmer_id", nil
	case RoleBuyer:
		return "buyer_id", nil
	default:
		return "", eris.Errorf("store: unknown party role %q", role)
	}
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCrop(row scannable, id int64) (*model.Crop, error) {
	var c model.Crop
	var avgYield, marketPrice, volatility sql.NullFloat64

	err := row.Scan(
		&c.ID, &c.Name, &c.Category, &c.Variety, &c.ScientificName,
		&c.GrowingSeason, &c.HarvestDays,
		&avgYield, &marketPrice, &volatility,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("crop not found: %d", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan crop")
	}

	c.AverageYieldPerAcre = nullFloat(avgYield)
	c.CurrentMarketPrice = nullFloat(marketPrice)
	c.PriceVolatilityScore = nullFloat(volatility)
	return &c, nil
}

func collectPrices(rows *sql.Rows) ([]model.MarketPrice, error) {
	var prices []model.MarketPrice
	for rows.Next() {
		var p model.MarketPrice
		err := rows.Scan(&p.ID, &p.CropID, &p.Location, &p.MarketName,
			&p.PricePerQuintal, &p.Date, &p.Season, &p.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan market price")
		}
		prices = append(prices, p)
	}
	return prices, eris.Wrap(rows.Err(), "sqlite: prices iterate")
}

func scanListing(row scannable, id string) (*model.CropListing, error) {
	var l model.CropListing
	var grade string
	var quality, priceRec sql.NullFloat64

	err := row.Scan(
		&l.ID, &l.FarmerID, &l.CropID, &l.QuantityAvailable, &l.ExpectedPrice,
		&grade, &l.OrganicCertified, &l.HarvestDate, &l.FarmLocation, &l.Status,
		&l.Description, &quality, &priceRec, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("listing not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan listing")
	}

	l.QualityGrade = model.QualityGrade(grade)
	l.AIQualityScore = nullFloat(quality)
	l.AIPriceRecommendation = nullFloat(priceRec)
	return &l, nil
}

func scanContract(row scannable, id string) (*model.Contract, error) {
	var c model.Contract
	var actualDelivery sql.NullTime
	var riskScore sql.NullFloat64

	err := row.Scan(
		&c.ID, &c.ListingID, &c.BuyerID, &c.FarmerID, &c.AgreedQuantity, &c.AgreedPrice,
		&c.TotalValue, &c.ExpectedDelivery, &actualDelivery, &c.PaymentTerms,
		&c.DeliveryLocation, &c.Status, &c.CompletionPct, &riskScore,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("contract not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan contract")
	}

	if actualDelivery.Valid {
		t := actualDelivery.Time
		c.ActualDelivery = &t
	}
	c.AIRiskScore = nullFloat(riskScore)
	return &c, nil
}
