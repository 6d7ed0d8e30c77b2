/*
Package sqlite provides a SQLite-backed price history for the marketplace.

Prices are stored one row per (market, region, period). Saving a price that
already exists replaces it. The store is a persistence layer only: callers
load it into an in-memory marketplace.Marketplace before a run, so MAC
evaluation never touches the database.

USAGE:

	store, err := sqlite.New("./data/prices.db")
	if err != nil {
	    return err
	}
	defer store.Close()

	market := marketplace.New(logger)
	if _, err := store.LoadInto(ctx, market); err != nil {
	    return err
	}
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists market prices in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases from being per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS market_prices (
		market TEXT NOT NULL,
		region TEXT NOT NULL,
		period INTEGER NOT NULL,
		price REAL NOT NULL,
		PRIMARY KEY (market, region, period)
	);

	CREATE INDEX IF NOT EXISTS idx_market_prices_region
		ON market_prices(region, market);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SavePrice inserts or replaces a single price.
func (s *Store) SavePrice(ctx context.Context, q marketplace.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_prices (market, region, period, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(market, region, period) DO UPDATE SET price = excluded.price
	`, q.Market, q.Region, q.Period, q.Price)
	if err != nil {
		return fmt.Errorf("failed to save price %s/%s/%d: %w", q.Market, q.Region, q.Period, err)
	}
	return nil
}

// SaveQuotes stores all quotes in a single transaction.
func (s *Store) SaveQuotes(ctx context.Context, quotes []marketplace.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_prices (market, region, period, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(market, region, period) DO UPDATE SET price = excluded.price
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx, q.Market, q.Region, q.Period, q.Price); err != nil {
			return fmt.Errorf("failed to save price %s/%s/%d: %w", q.Market, q.Region, q.Period, err)
		}
	}

	return tx.Commit()
}

// Quotes returns every stored price ordered by market, region and period.
func (s *Store) Quotes(ctx context.Context) ([]marketplace.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT market, region, period, price
		FROM market_prices
		ORDER BY market, region, period
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var quotes []marketplace.Quote
	for rows.Next() {
		var q marketplace.Quote
		if err := rows.Scan(&q.Market, &q.Region, &q.Period, &q.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// LoadInto copies every stored price into m and returns how many were loaded.
func (s *Store) LoadInto(ctx context.Context, m *marketplace.Marketplace) (int, error) {
	quotes, err := s.Quotes(ctx)
	if err != nil {
		return 0, err
	}
	for _, q := range quotes {
		m.SetPrice(q.Market, q.Region, q.Period, q.Price)
	}
	return len(quotes), nil
}
