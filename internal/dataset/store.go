package dataset

import (
	"database/sql"
	"math"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"incidentcast/pkg/errors"
)

// Store answers the serving-time queries over the loaded dataset. The
// incidents are copied into an in-memory SQLite database at construction and
// never written again.
type Store struct {
	db   *sql.DB
	rows int
}

// NewStore builds the in-memory store from the loaded incidents.
func NewStore(incidents []Incident) (*Store, error) {
	if len(incidents) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.NewStore")
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "dataset.NewStore: open")
	}
	// An in-memory SQLite database is private to its connection, so the pool
	// must stay at exactly one.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, rows: len(incidents)}
	if err := s.init(incidents); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(incidents []Incident) error {
	schema := []string{
		`CREATE TABLE incidents (
			year        INTEGER NOT NULL,
			month       INTEGER NOT NULL,
			day         INTEGER NOT NULL,
			country_id  INTEGER NOT NULL,
			country     TEXT NOT NULL,
			region_id   INTEGER NOT NULL,
			region      TEXT NOT NULL,
			city        TEXT NOT NULL,
			latitude    REAL NOT NULL,
			longitude   REAL NOT NULL,
			attack_type TEXT NOT NULL,
			target_type TEXT NOT NULL,
			weapon_type TEXT NOT NULL,
			summary     TEXT NOT NULL,
			nkill       REAL NOT NULL
		)`,
		`CREATE INDEX idx_incidents_country ON incidents(country COLLATE NOCASE)`,
		`CREATE INDEX idx_incidents_region ON incidents(region COLLATE NOCASE)`,
	}
	for _, q := range schema {
		if _, err := s.db.Exec(q); err != nil {
			return errors.Wrap(err, "dataset.Store: schema")
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "dataset.Store: begin")
	}
	stmt, err := tx.Prepare(`INSERT INTO incidents
		(year, month, day, country_id, country, region_id, region, city,
		 latitude, longitude, attack_type, target_type, weapon_type, summary, nkill)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "dataset.Store: prepare")
	}
	defer stmt.Close()

	for i := range incidents {
		in := &incidents[i]
		if _, err := stmt.Exec(
			in.Year, in.Month, in.Day,
			in.CountryID, in.Country, in.RegionID, in.Region, in.City,
			in.Latitude, in.Longitude,
			in.AttackType, in.TargetType, in.WeaponType, in.Summary,
			in.Fatalities,
		); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "dataset.Store: insert")
		}
	}
	return errors.Wrap(tx.Commit(), "dataset.Store: commit")
}

// Count returns the number of loaded incidents.
func (s *Store) Count() int {
	return s.rows
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// YearCount is one point of a country's incident history.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// History aggregates incident counts by year for the named country,
// case-insensitively, ordered by year ascending. An unknown country yields an
// empty slice, not an error.
func (s *Store) History(country string) ([]YearCount, error) {
	rows, err := s.db.Query(
		`SELECT year, COUNT(*) FROM incidents
		 WHERE country = ? COLLATE NOCASE
		 GROUP BY year ORDER BY year`, country)
	if err != nil {
		return nil, errors.Wrap(err, "dataset.Store.History")
	}
	defer rows.Close()

	history := make([]YearCount, 0)
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, errors.Wrap(err, "dataset.Store.History: scan")
		}
		history = append(history, yc)
	}
	return history, errors.Wrap(rows.Err(), "dataset.Store.History")
}

// NearbyIncident is one result of a Similar query.
type NearbyIncident struct {
	Year       int     `json:"year"`
	Country    string  `json:"country"`
	City       string  `json:"city"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	AttackType string  `json:"attack_type"`
	Fatalities float64 `json:"fatalities"`
	Summary    string  `json:"summary,omitempty"`
	DistanceKM float64 `json:"distance_km"`
}

// Similar returns incidents in the named region ordered by haversine
// distance from the query point, nearest first, capped at limit. Incidents
// without recorded coordinates are skipped.
func (s *Store) Similar(region string, lat, lon float64, limit int) ([]NearbyIncident, error) {
	rows, err := s.db.Query(
		`SELECT year, country, city, latitude, longitude, attack_type, nkill, summary
		 FROM incidents
		 WHERE region = ? COLLATE NOCASE AND NOT (latitude = 0 AND longitude = 0)`, region)
	if err != nil {
		return nil, errors.Wrap(err, "dataset.Store.Similar")
	}
	defer rows.Close()

	nearby := make([]NearbyIncident, 0)
	for rows.Next() {
		var in NearbyIncident
		if err := rows.Scan(&in.Year, &in.Country, &in.City, &in.Latitude,
			&in.Longitude, &in.AttackType, &in.Fatalities, &in.Summary); err != nil {
			return nil, errors.Wrap(err, "dataset.Store.Similar: scan")
		}
		in.DistanceKM = haversineKM(lat, lon, in.Latitude, in.Longitude)
		nearby = append(nearby, in)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "dataset.Store.Similar")
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKM < nearby[j].DistanceKM
	})
	if limit > 0 && len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby, nil
}

// Metadata lists the distinct values per categorical field and the id-to-name
// maps for countries and regions. The dataset is immutable at serving time,
// so the result can be cached for the process lifetime.
type Metadata struct {
	Countries   map[int]string `json:"countries"`
	Regions     map[int]string `json:"regions"`
	AttackTypes []string       `json:"attack_types"`
	TargetTypes []string       `json:"target_types"`
	WeaponTypes []string       `json:"weapon_types"`
}

// Metadata computes the metadata view.
func (s *Store) Metadata() (*Metadata, error) {
	md := &Metadata{
		Countries: make(map[int]string),
		Regions:   make(map[int]string),
	}

	if err := s.idNameMap("country_id", "country", md.Countries); err != nil {
		return nil, err
	}
	if err := s.idNameMap("region_id", "region", md.Regions); err != nil {
		return nil, err
	}

	var err error
	if md.AttackTypes, err = s.distinct("attack_type"); err != nil {
		return nil, err
	}
	if md.TargetTypes, err = s.distinct("target_type"); err != nil {
		return nil, err
	}
	if md.WeaponTypes, err = s.distinct("weapon_type"); err != nil {
		return nil, err
	}
	return md, nil
}

func (s *Store) idNameMap(idCol, nameCol string, out map[int]string) error {
	rows, err := s.db.Query(
		`SELECT DISTINCT ` + idCol + `, ` + nameCol + ` FROM incidents ORDER BY ` + nameCol)
	if err != nil {
		return errors.Wrap(err, "dataset.Store.Metadata")
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return errors.Wrap(err, "dataset.Store.Metadata: scan")
		}
		out[id] = name
	}
	return errors.Wrap(rows.Err(), "dataset.Store.Metadata")
}

func (s *Store) distinct(col string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT ` + col + ` FROM incidents ORDER BY ` + col)
	if err != nil {
		return nil, errors.Wrap(err, "dataset.Store.Metadata")
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "dataset.Store.Metadata: scan")
		}
		values = append(values, v)
	}
	return values, errors.Wrap(rows.Err(), "dataset.Store.Metadata")
}

// CountryStat is one country's aggregate for the globe view.
type CountryStat struct {
	Country    string  `json:"country"`
	CountryID  int     `json:"country_id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Fatalities float64 `json:"fatalities"`
	Incidents  int     `json:"incidents"`
}

// GlobeStats aggregates per-country centroid coordinates, total fatalities,
// and incident counts.
func (s *Store) GlobeStats() ([]CountryStat, error) {
	rows, err := s.db.Query(
		`SELECT country, MIN(country_id), AVG(latitude), AVG(longitude), SUM(nkill), COUNT(*)
		 FROM incidents GROUP BY country ORDER BY country`)
	if err != nil {
		return nil, errors.Wrap(err, "dataset.Store.GlobeStats")
	}
	defer rows.Close()

	stats := make([]CountryStat, 0)
	for rows.Next() {
		var cs CountryStat
		if err := rows.Scan(&cs.Country, &cs.CountryID, &cs.Lat, &cs.Lon,
			&cs.Fatalities, &cs.Incidents); err != nil {
			return nil, errors.Wrap(err, "dataset.Store.GlobeStats: scan")
		}
		stats = append(stats, cs)
	}
	return stats, errors.Wrap(rows.Err(), "dataset.Store.GlobeStats")
}

const earthRadiusKM = 6371.0

// haversineKM is the great-circle distance between two points in kilometers.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLon := (lon2 - lon1) * toRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
