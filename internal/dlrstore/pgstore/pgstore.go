// Package pgstore is a dlrstore.Store backed by PostgreSQL, for
// deployments that want DLR correlation entries to outlive a process
// restart of the component holding them (still not a durability
// guarantee for the bearerbox core itself, per spec.md's non-goals).
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oonrumail/bearerbox/internal/msg"
)

// Store wraps a *pgxpool.Pool. Callers are responsible for creating the
// backing table:
//
//	CREATE TABLE dlr_correlation (
//	    smsc_id    text NOT NULL,
//	    message_id text NOT NULL,
//	    payload    bytea NOT NULL,
//	    PRIMARY KEY (smsc_id, message_id)
//	);
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Add(ctx context.Context, smscID, messageID string, m *msg.Msg) error {
	data, err := msg.Pack(m)
	if err != nil {
		return fmt.Errorf("dlrstore/pgstore: pack: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO dlr_correlation (smsc_id, message_id, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (smsc_id, message_id) DO UPDATE SET payload = EXCLUDED.payload
	`, smscID, messageID, data)
	if err != nil {
		return fmt.Errorf("dlrstore/pgstore: insert: %w", err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, smscID, messageID, destination string, status msg.DLRStatus) (*msg.Msg, bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		DELETE FROM dlr_correlation
		WHERE smsc_id = $1 AND message_id = $2
		RETURNING payload
	`, smscID, messageID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dlrstore/pgstore: select: %w", err)
	}
	m, err := msg.Unpack(data)
	if err != nil {
		return nil, false, fmt.Errorf("dlrstore/pgstore: unpack: %w", err)
	}
	return m, true, nil
}
