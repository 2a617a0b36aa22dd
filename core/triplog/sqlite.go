package triplog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS trip_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER,
        sim_time REAL,
        kind TEXT,
        taxi_id TEXT,
        reservation_id TEXT,
        distance REAL,
        energy REAL,
        amount REAL,
        demand REAL,
        tod_rate REAL
    );
    CREATE INDEX IF NOT EXISTS trip_log_taxi ON trip_log (taxi_id, sim_time);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the records in a single transaction.
func (s *SQLiteStore) Append(ctx context.Context, recs ...Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO trip_log
        (ts, sim_time, kind, taxi_id, reservation_id, distance, energy, amount, demand, tod_rate)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.Timestamp.UnixNano(), r.SimTime, string(r.Kind), r.TaxiID,
			r.ReservationID, r.Distance, r.Energy, r.Amount, r.Demand, r.TODRate); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s record: %w", r.Kind, err)
		}
	}
	return tx.Commit()
}

// Query returns records matching q ordered by simulation time.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT ts, sim_time, kind, taxi_id, reservation_id, distance, energy, amount, demand, tod_rate
        FROM trip_log WHERE sim_time >= ?`
	args = append(args, q.Since)
	if q.Until > 0 {
		query += ` AND sim_time <= ?`
		args = append(args, q.Until)
	}
	if q.TaxiID != "" {
		query += ` AND taxi_id = ?`
		args = append(args, q.TaxiID)
	}
	if q.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(q.Kind))
	}
	query += ` ORDER BY sim_time, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var (
			r    Record
			ts   int64
			kind string
		)
		if err := rows.Scan(&ts, &r.SimTime, &kind, &r.TaxiID, &r.ReservationID,
			&r.Distance, &r.Energy, &r.Amount, &r.Demand, &r.TODRate); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, ts)
		r.Kind = Kind(kind)
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
