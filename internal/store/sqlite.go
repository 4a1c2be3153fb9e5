// Package store persists extracted places and census demographics in a
// local SQLite database.
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/places-of-worship/places-cli/internal/census"
	"github.com/places-of-worship/places-cli/internal/places"
)

// SQLite wraps a modernc.org/sqlite database handle.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS places (
	id           TEXT PRIMARY KEY,
	osm_id       INTEGER NOT NULL,
	osm_type     TEXT NOT NULL,
	lat          REAL NOT NULL,
	lng          REAL NOT NULL,
	name         TEXT NOT NULL,
	religion     TEXT NOT NULL,
	denomination TEXT,
	confidence   REAL NOT NULL,
	country_code TEXT NOT NULL,
	website      TEXT,
	phone        TEXT,
	address      TEXT,
	start_date   TEXT
);

CREATE TABLE IF NOT EXISTS census_attributes (
	id        TEXT PRIMARY KEY,
	ta_code   TEXT NOT NULL,
	ta_name   TEXT NOT NULL,
	year      TEXT NOT NULL,
	religion  TEXT NOT NULL,
	count     INTEGER NOT NULL,
	UNIQUE(ta_code, year, religion)
);

CREATE INDEX IF NOT EXISTS idx_places_bounds ON places(lat, lng);
CREATE INDEX IF NOT EXISTS idx_places_country ON places(country_code);
CREATE INDEX IF NOT EXISTS idx_census_ta_code ON census_attributes(ta_code);
`

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertPlaces writes a batch of places in one transaction, replacing rows
// that share an ID so re-running an extraction is idempotent.
func (s *SQLite) InsertPlaces(ctx context.Context, batch []places.Place) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO places
		 (id, osm_id, osm_type, lat, lng, name, religion, denomination,
		  confidence, country_code, website, phone, address, start_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert place")
	}
	defer stmt.Close() //nolint:errcheck

	for _, p := range batch {
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.OSMID, p.OSMType, p.Lat, p.Lng, p.Name, p.Religion,
			p.Denomination, p.Confidence, p.CountryCode, p.Website, p.Phone,
			p.Address, p.StartDate,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert place %s", p.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit places")
}

const placeColumns = `id, osm_id, osm_type, lat, lng, name, religion,
	denomination, confidence, country_code, website, phone, address, start_date`

// LoadPlaces reads every stored place in insertion-stable rowid order,
// suitable for constructing a places.Table.
func (s *SQLite) LoadPlaces(ctx context.Context) ([]places.Place, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+placeColumns+` FROM places ORDER BY rowid`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load places")
	}
	defer rows.Close() //nolint:errcheck
	return scanPlaces(rows)
}

// QueryPlaces pushes a bounding-box filter down to SQL. Bounds are
// inclusive, matching the in-memory table semantics.
func (s *SQLite) QueryPlaces(ctx context.Context, bounds places.BBox, minConfidence float64) ([]places.Place, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+placeColumns+` FROM places
		 WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ? AND confidence >= ?
		 ORDER BY rowid`,
		bounds.MinLat, bounds.MaxLat, bounds.MinLng, bounds.MaxLng, minConfidence)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query places")
	}
	defer rows.Close() //nolint:errcheck
	return scanPlaces(rows)
}

// InsertCensus flattens a reshaped dataset into attribute rows, one row per
// authority, year and religion. Existing rows for the same key are replaced.
func (s *SQLite) InsertCensus(ctx context.Context, dataset census.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO census_attributes (id, ta_code, ta_name, year, religion, count)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ta_code, year, religion) DO UPDATE SET count = excluded.count`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert census")
	}
	defer stmt.Close() //nolint:errcheck

	for code, authority := range dataset {
		for year, counts := range authority.Years {
			for religion, count := range counts {
				if _, err := stmt.ExecContext(ctx,
					uuid.New().String(), code, authority.Name, year, religion, count,
				); err != nil {
					return eris.Wrapf(err, "sqlite: insert census %s/%s/%s", code, year, religion)
				}
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit census")
}

// CensusCounts reloads one authority's timeline.
func (s *SQLite) CensusCounts(ctx context.Context, taCode string) (map[string]census.Counts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT year, religion, count FROM census_attributes WHERE ta_code = ?`,
		taCode)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: census counts %s", taCode)
	}
	defer rows.Close() //nolint:errcheck

	years := make(map[string]census.Counts)
	for rows.Next() {
		var year, religion string
		var count int
		if err := rows.Scan(&year, &religion, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan census row")
		}
		if years[year] == nil {
			years[year] = make(census.Counts)
		}
		years[year][religion] = count
	}
	return years, eris.Wrap(rows.Err(), "sqlite: census counts iterate")
}

func scanPlaces(rows *sql.Rows) ([]places.Place, error) {
	var out []places.Place
	for rows.Next() {
		var p places.Place
		if err := rows.Scan(
			&p.ID, &p.OSMID, &p.OSMType, &p.Lat, &p.Lng, &p.Name, &p.Religion,
			&p.Denomination, &p.Confidence, &p.CountryCode, &p.Website,
			&p.Phone, &p.Address, &p.StartDate,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate places")
}
