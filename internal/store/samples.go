package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sampleColumns = `id, host_id, ts, load_1, load_5, load_15, used_memory_mb, total_memory_mb`

// Append persists one sample and sets its ID. The row is written by a single
// INSERT, so it is either fully visible or not visible at all.
func (s *Store) Append(ctx context.Context, sample *Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO samples (host_id, ts, load_1, load_5, load_15, used_memory_mb, total_memory_mb)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sample.HostID, sample.Timestamp.UnixNano(),
		nullFloat(sample.Load1), nullFloat(sample.Load5), nullFloat(sample.Load15),
		nullFloat(sample.UsedMemoryMB), nullFloat(sample.TotalMemoryMB),
	)
	if err != nil {
		return fmt.Errorf("append sample for host %d: %w", sample.HostID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append sample for host %d: %w", sample.HostID, err)
	}
	sample.ID = id
	return nil
}

// QueryRange returns samples for one host with Start <= timestamp <= End,
// ordered oldest first. When more than Limit samples match, the most recent
// Limit are returned.
func (s *Store) QueryRange(ctx context.Context, q RangeQuery) ([]Sample, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	where := "host_id = ?"
	args := []any{q.HostID}
	if q.Start != nil {
		where += " AND ts >= ?"
		args = append(args, q.Start.UnixNano())
	}
	if q.End != nil {
		where += " AND ts <= ?"
		args = append(args, q.End.UnixNano())
	}
	args = append(args, limit)

	// Newest first so LIMIT keeps the most recent rows, then reversed below.
	//nolint:gosec // where uses parameterized placeholders only
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sampleColumns+` FROM samples WHERE `+where+` ORDER BY ts DESC, id DESC LIMIT ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query samples for host %d: %w", q.HostID, err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, *sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

// DeleteOlderThan removes every sample, across all hosts, with a timestamp
// strictly before cutoff, and returns how many were removed. The sweep runs
// in one transaction: it is either fully applied or not at all.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE ts < ?`, cutoff.UnixNano())
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete samples before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return removed, nil
}

// CountSamples returns the number of stored samples for a host, or for all
// hosts when hostID is zero.
func (s *Store) CountSamples(ctx context.Context, hostID int64) (int64, error) {
	var n int64
	var err error
	if hostID == 0 {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples WHERE host_id = ?`, hostID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// Summaries returns every host with its newest sample and sample count,
// ordered by host name.
func (s *Store) Summaries(ctx context.Context) ([]HostSummary, error) {
	hosts, err := s.ListHosts(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[int64]*Sample)
	counts := make(map[int64]int64)

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.host_id, s.ts, s.load_1, s.load_5, s.load_15, s.used_memory_mb, s.total_memory_mb, c.n
		FROM samples s
		JOIN (
			SELECT host_id, MAX(ts) AS max_ts, COUNT(*) AS n
			FROM samples GROUP BY host_id
		) c ON c.host_id = s.host_id AND c.max_ts = s.ts
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("latest samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sample Sample
		var ts, n int64
		var l1, l5, l15, used, total sql.NullFloat64
		if err := rows.Scan(&sample.ID, &sample.HostID, &ts, &l1, &l5, &l15, &used, &total, &n); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		fillSample(&sample, ts, l1, l5, l15, used, total)
		// Later ids win when two samples share the newest timestamp
		latest[sample.HostID] = &sample
		counts[sample.HostID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	out := make([]HostSummary, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, HostSummary{Host: h, Latest: latest[h.ID], SampleCount: counts[h.ID]})
	}
	return out, nil
}

func scanSample(row rowScanner) (*Sample, error) {
	var sample Sample
	var ts int64
	var l1, l5, l15, used, total sql.NullFloat64
	if err := row.Scan(&sample.ID, &sample.HostID, &ts, &l1, &l5, &l15, &used, &total); err != nil {
		return nil, err
	}
	fillSample(&sample, ts, l1, l5, l15, used, total)
	return &sample, nil
}

func fillSample(sample *Sample, ts int64, l1, l5, l15, used, total sql.NullFloat64) {
	sample.Timestamp = time.Unix(0, ts).UTC()
	sample.Load1 = floatPtr(l1)
	sample.Load5 = floatPtr(l5)
	sample.Load15 = floatPtr(l15)
	sample.UsedMemoryMB = floatPtr(used)
	sample.TotalMemoryMB = floatPtr(total)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
