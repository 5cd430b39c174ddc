package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"
)

const hostColumns = `id, name, address, port, username, password, created_at`

// AddHost registers a host and sets its ID and CreatedAt.
// Returns ErrAlreadyExists if the name is taken.
func (s *Store) AddHost(ctx context.Context, h *Host) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO hosts (name, address, port, username, password, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.Name, h.Address, h.Port, h.Username, h.Password, h.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("host %q: %w", h.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("add host %q: %w", h.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("add host %q: %w", h.Name, err)
	}
	h.ID = id
	return nil
}

// UpdateHost replaces the address, port and credentials of an existing host.
// The name may change too, subject to uniqueness.
func (s *Store) UpdateHost(ctx context.Context, h *Host) error {
	if err := h.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE hosts SET name = ?, address = ?, port = ?, username = ?, password = ?
		WHERE id = ?`,
		h.Name, h.Address, h.Port, h.Username, h.Password, h.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("host %q: %w", h.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("update host %d: %w", h.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update host %d: %w", h.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetHost returns a host by ID.
func (s *Store) GetHost(ctx context.Context, id int64) (*Host, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+hostColumns+` FROM hosts WHERE id = ?`, id)
	h, err := scanHost(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get host %d: %w", id, err)
	}
	return h, nil
}

// GetHostByName returns a host by its unique name.
func (s *Store) GetHostByName(ctx context.Context, name string) (*Host, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+hostColumns+` FROM hosts WHERE name = ?`, name)
	h, err := scanHost(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get host %q: %w", name, err)
	}
	return h, nil
}

// ListHosts returns a snapshot of every registered host ordered by name.
func (s *Store) ListHosts(ctx context.Context) ([]Host, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+hostColumns+` FROM hosts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	defer rows.Close()

	hosts := []Host{}
	for rows.Next() {
		h, err := scanHost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan host: %w", err)
		}
		hosts = append(hosts, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hosts: %w", err)
	}
	return hosts, nil
}

// RemoveHost deletes a host and, by cascade, all of its samples.
func (s *Store) RemoveHost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM hosts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove host %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove host %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHost(row rowScanner) (*Host, error) {
	var h Host
	var created int64
	if err := row.Scan(&h.ID, &h.Name, &h.Address, &h.Port, &h.Username, &h.Password, &created); err != nil {
		return nil, err
	}
	h.CreatedAt = time.Unix(0, created).UTC()
	return &h, nil
}
