package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"filmseek/dbopen"
	"filmseek/movie"
)

// Schema creates the persistent-tier tables.
const Schema = `
CREATE TABLE IF NOT EXISTS movies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	movie_page TEXT,
	source TEXT DEFAULT 'movierulz-search',
	year TEXT,
	poster TEXT,
	genre TEXT DEFAULT 'Unknown',
	rating TEXT DEFAULT 'N/A',
	query_keywords TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	last_verified TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	is_active BOOLEAN DEFAULT 1
);
CREATE TABLE IF NOT EXISTS search_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL,
	results_json TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	expires_at TIMESTAMP NOT NULL,
	hit_count INTEGER DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_movies_keywords ON movies(query_keywords);
CREATE INDEX IF NOT EXISTS idx_search_cache_query ON search_cache(query);
`

const (
	// DefaultStoreTTL is how long a cached search result row stays valid.
	DefaultStoreTTL = 6 * time.Hour

	catalogFreshness  = 7 * 24 * time.Hour
	catalogRetirement = 30 * 24 * time.Hour

	// Fractional seconds keep string comparison correct for rows
	// written within the same second.
	timeLayout = "2006-01-02 15:04:05.999999999"
)

// Store is the SQLite-backed cache tier plus movie catalog.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("cache: open store: %w", err)
	}
	return New(db), nil
}

// New wraps an already-open database. The schema must be applied.
func New(db *sql.DB) *Store {
	return &Store{db: db, ttl: DefaultStoreTTL}
}

// SetTTL overrides the search-result row lifetime.
func (s *Store) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// GetSearch returns the freshest unexpired cached result set for the
// query, bumping its hit count. The second return is false on a miss.
func (s *Store) GetSearch(ctx context.Context, query string) ([]movie.Record, bool, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT results_json FROM search_cache
		WHERE query = ? AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`,
		query, now()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get search: %w", err)
	}

	if _, err := dbopen.Exec(ctx, s.db,
		`UPDATE search_cache SET hit_count = hit_count + 1 WHERE query = ?`, query); err != nil {
		return nil, false, fmt.Errorf("cache: bump hits: %w", err)
	}

	var records []movie.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, false, fmt.Errorf("cache: decode cached results: %w", err)
	}
	return records, true, nil
}

// PutSearch caches a result set for the query, replacing any prior row.
func (s *Store) PutSearch(ctx context.Context, query string, records []movie.Record) error {
	query = strings.ToLower(strings.TrimSpace(query))

	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("cache: encode results: %w", err)
	}

	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM search_cache WHERE query = ?`, query); err != nil {
			return fmt.Errorf("cache: drop stale row: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO search_cache (query, results_json, created_at, expires_at)
			VALUES (?, ?, ?, ?)`,
			query, string(raw), now(), timestamp(time.Now().Add(s.ttl))); err != nil {
			return fmt.Errorf("cache: insert search row: %w", err)
		}
		return nil
	})
}

// SearchCatalog looks the query up against previously stored movies.
// Matches carry their original source tag with a "-db" suffix.
func (s *Store) SearchCatalog(ctx context.Context, query string, maxResults int) ([]movie.Record, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if maxResults <= 0 {
		maxResults = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT title, url, movie_page, source, year, poster, genre, rating
		FROM movies
		WHERE is_active = 1
		AND (query_keywords LIKE ? OR title LIKE ?)
		AND last_verified > ?
		ORDER BY created_at DESC
		LIMIT ?`,
		"%"+query+"%", "%"+query+"%", timestamp(time.Now().Add(-catalogFreshness)), maxResults)
	if err != nil {
		return nil, fmt.Errorf("cache: search catalog: %w", err)
	}
	defer rows.Close()

	var records []movie.Record
	for rows.Next() {
		var r movie.Record
		if err := rows.Scan(&r.Title, &r.CanonicalURL, &r.DetailPageURL,
			&r.Source, &r.Year, &r.PosterURL, &r.Genre, &r.Rating); err != nil {
			return nil, fmt.Errorf("cache: scan catalog row: %w", err)
		}
		r.Source += movie.SuffixDB
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: catalog rows: %w", err)
	}
	return records, nil
}

// StoreMovies adds records to the catalog, keyed for later retrieval by
// the query that found them. Existing URLs are left untouched.
func (s *Store) StoreMovies(ctx context.Context, query string, records []movie.Record) error {
	query = strings.ToLower(strings.TrimSpace(query))

	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, r := range records {
			var exists int
			err := tx.QueryRowContext(ctx,
				`SELECT 1 FROM movies WHERE url = ?`, r.CanonicalURL).Scan(&exists)
			if err == nil {
				continue
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("cache: check movie: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO movies
				(title, url, movie_page, source, year, poster, genre, rating, query_keywords)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.Title, r.CanonicalURL, r.DetailPageURL, r.Source,
				r.Year, r.PosterURL, r.Genre, r.Rating,
				query+" "+strings.ToLower(r.Title)); err != nil {
				return fmt.Errorf("cache: insert movie: %w", err)
			}
		}
		return nil
	})
}

// Cleanup drops expired search rows and retires catalog entries not
// verified within the retirement window.
func (s *Store) Cleanup(ctx context.Context) error {
	if _, err := dbopen.Exec(ctx, s.db,
		`DELETE FROM search_cache WHERE expires_at < ?`, now()); err != nil {
		return fmt.Errorf("cache: cleanup search rows: %w", err)
	}
	if _, err := dbopen.Exec(ctx, s.db,
		`UPDATE movies SET is_active = 0 WHERE last_verified < ?`,
		timestamp(time.Now().Add(-catalogRetirement))); err != nil {
		return fmt.Errorf("cache: retire movies: %w", err)
	}
	return nil
}

// Clear drops every cached search row. The catalog is kept.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := dbopen.Exec(ctx, s.db, `DELETE FROM search_cache`); err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	return nil
}

// QueryHits pairs a cached query with its hit count.
type QueryHits struct {
	Query string `json:"query"`
	Hits  int    `json:"hits"`
}

// Stats summarizes the persistent tier.
type Stats struct {
	ActiveMovies       int         `json:"active_movies"`
	ActiveCacheEntries int         `json:"active_cache_entries"`
	PopularQueries     []QueryHits `json:"popular_queries"`
}

// ReadStats collects store statistics.
func (s *Store) ReadStats(ctx context.Context) (Stats, error) {
	var st Stats

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM movies WHERE is_active = 1`).Scan(&st.ActiveMovies); err != nil {
		return st, fmt.Errorf("cache: count movies: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_cache WHERE expires_at > ?`, now()).Scan(&st.ActiveCacheEntries); err != nil {
		return st, fmt.Errorf("cache: count cache rows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT query, hit_count FROM search_cache
		WHERE expires_at > ?
		ORDER BY hit_count DESC LIMIT 5`, now())
	if err != nil {
		return st, fmt.Errorf("cache: popular queries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var qh QueryHits
		if err := rows.Scan(&qh.Query, &qh.Hits); err != nil {
			return st, fmt.Errorf("cache: scan popular query: %w", err)
		}
		st.PopularQueries = append(st.PopularQueries, qh)
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("cache: popular query rows: %w", err)
	}
	return st, nil
}

func now() string { return timestamp(time.Now()) }

func timestamp(t time.Time) string { return t.UTC().Format(timeLayout) }
