package store

import (
	"context"
	"database/sql"
	"fmt"
)

// One user on one calendar day.
type DayUser struct {
	ID int64
	User string // dataset user label
	Day string // YYYY-MM-DD
	Start int64 // seconds since midnight
	End int64
	Duration int64 // seconds
	Count int64 // number of raw records
	CentroidLat float64
	CentroidLon float64
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
	Country string
	City string
	Timezone string
}

// A GPS fix as stored for a day user.
type RawRecord struct {
	Timestamp int64 // unix seconds
	Time int64 // seconds since midnight
	Latitude float64
	Longitude float64
	Altitude float64
}

// A position on the homogenization grid.
type HomogenizedRecord struct {
	DayUserID int64
	Time int64 // seconds since midnight
	Latitude float64
	Longitude float64
}

const dayUserColumns = `id, user_label, day, start_time, end_time, duration, count, centroid_lat,
	centroid_lon, min_lat, max_lat, min_lon, max_lon, country, city, timezone`

func scanDayUser(row interface{ Scan(...interface{}) error }) (DayUser, error) {
	var u DayUser
	err := row.Scan(&u.ID, &u.User, &u.Day, &u.Start, &u.End, &u.Duration, &u.Count,
		&u.CentroidLat, &u.CentroidLon, &u.MinLat, &u.MaxLat, &u.MinLon, &u.MaxLon,
		&u.Country, &u.City, &u.Timezone)
	return u, err
}

// Stores a day user together with its raw records, replacing any records imported before for the
// same user and day. Homogenized records of that day user are dropped since they no longer match
// the raw records. The statistics columns are written from u; an empty country, city or timezone
// keeps the stored value.
// ctx: context for the transaction
// u: the day user; ID is ignored
// records: the raw records of the day
// Returns the id of the day user or any errors
func (s *Store) SaveDayUser(ctx context.Context, u DayUser, records []RawRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, s.rebind(`
		INSERT INTO day_users (user_label, day, start_time, end_time, duration, count,
			centroid_lat, centroid_lon, min_lat, max_lat, min_lon, max_lon, country, city, timezone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_label, day) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration = excluded.duration,
			count = excluded.count,
			centroid_lat = excluded.centroid_lat,
			centroid_lon = excluded.centroid_lon,
			min_lat = excluded.min_lat,
			max_lat = excluded.max_lat,
			min_lon = excluded.min_lon,
			max_lon = excluded.max_lon,
			country = COALESCE(NULLIF(excluded.country, ''), day_users.country),
			city = COALESCE(NULLIF(excluded.city, ''), day_users.city),
			timezone = COALESCE(NULLIF(excluded.timezone, ''), day_users.timezone)
		RETURNING id`),
		u.User, u.Day, u.Start, u.End, u.Duration, u.Count, u.CentroidLat, u.CentroidLon,
		u.MinLat, u.MaxLat, u.MinLon, u.MaxLon, u.Country, u.City, u.Timezone,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save day user %s/%s: %w", u.User, u.Day, err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM homogenized_records WHERE day_user_id = ?`), id); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM raw_records WHERE day_user_id = ?`), id); err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO raw_records (day_user_id, ts, time, latitude, longitude, altitude)
		VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, id, r.Timestamp, r.Time, r.Latitude, r.Longitude, r.Altitude); err != nil {
			return 0, fmt.Errorf("failed to insert raw record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Lists all day users ordered by id.
func (s *Store) DayUsers(ctx context.Context) ([]DayUser, error) {
	return s.queryDayUsers(ctx, `SELECT `+dayUserColumns+` FROM day_users ORDER BY id`)
}

// Lists the day users with the given ids ordered by id.
func (s *Store) DayUsersByID(ctx context.Context, ids []int64) ([]DayUser, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryDayUsers(ctx, `SELECT `+dayUserColumns+` FROM day_users WHERE id IN (`+
		placeholders(len(ids))+`) ORDER BY id`, int64Args(ids)...)
}

func (s *Store) queryDayUsers(ctx context.Context, query string, args ...interface{}) ([]DayUser, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []DayUser
	for rows.Next() {
		u, err := scanDayUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Ids of the day users that were recorded for longer than minDuration seconds and have more than
// minCount raw records, ordered by id.
func (s *Store) SelectDayUsers(ctx context.Context, minDuration int64, minCount int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id FROM day_users WHERE duration > ? AND count > ? ORDER BY id`), minDuration, minCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Updates where a day user is located.
func (s *Store) UpdatePlace(ctx context.Context, id int64, country string, city string, timezone string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE day_users SET country = ?, city = ?, timezone = ? WHERE id = ?`), country, city, timezone, id)
	return err
}

// Raw records of a day user ordered by time of day.
func (s *Store) RawRecords(ctx context.Context, dayUserID int64) ([]RawRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT ts, time, latitude, longitude, altitude FROM raw_records
		WHERE day_user_id = ? ORDER BY time, ts`), dayUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RawRecord
	for rows.Next() {
		var r RawRecord
		if err := rows.Scan(&r.Timestamp, &r.Time, &r.Latitude, &r.Longitude, &r.Altitude); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Replaces the homogenized records of a day user in one transaction.
func (s *Store) ReplaceHomogenized(ctx context.Context, dayUserID int64, records []HomogenizedRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM homogenized_records WHERE day_user_id = ?`), dayUserID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO homogenized_records (day_user_id, time, latitude, longitude) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, dayUserID, r.Time, r.Latitude, r.Longitude); err != nil {
			return fmt.Errorf("failed to insert homogenized record: %w", err)
		}
	}
	return tx.Commit()
}

// Homogenized records at one grid time, ordered by day user id. An empty ids list selects every
// day user.
// ctx: context for the query
// t: seconds since midnight
// ids: the day users to include
// Returns the records or any errors
func (s *Store) HomogenizedAt(ctx context.Context, t int64, ids []int64) ([]HomogenizedRecord, error) {
	query := `SELECT day_user_id, time, latitude, longitude FROM homogenized_records WHERE time = ?`
	args := []interface{}{t}
	if len(ids) > 0 {
		query += ` AND day_user_id IN (` + placeholders(len(ids)) + `)`
		args = append(args, int64Args(ids)...)
	}
	query += ` ORDER BY day_user_id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []HomogenizedRecord
	for rows.Next() {
		var r HomogenizedRecord
		if err := rows.Scan(&r.DayUserID, &r.Time, &r.Latitude, &r.Longitude); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Counts the homogenized records of a day user.
func (s *Store) CountHomogenized(ctx context.Context, dayUserID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM homogenized_records WHERE day_user_id = ?`), dayUserID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
