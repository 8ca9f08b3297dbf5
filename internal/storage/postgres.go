package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements LedgerStore on PostgreSQL.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore creates a LedgerStore on pool. queryTimeout sets the
// per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:         pool,
		queryTimeout: queryTimeout,
	}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

const deploymentColumns = `address, network, owner, name, description, image,
	royalty_factor, royalty_base, royalty_address, content_boc, deployed_at`

func scanDeployment(row pgx.Row) (*Deployment, error) {
	var d Deployment
	var factor, base int32
	if err := row.Scan(&d.Address, &d.Network, &d.Owner, &d.Name, &d.Description, &d.Image,
		&factor, &base, &d.RoyaltyAddress, &d.ContentBOC, &d.DeployedAt); err != nil {
		return nil, err
	}
	d.RoyaltyFactor, d.RoyaltyBase = uint16(factor), uint16(base)
	return &d, nil
}

func (s *PostgresStore) RecordDeployment(ctx context.Context, d Deployment) (*Deployment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO collections (address, network, owner, name, description, image,
			royalty_factor, royalty_base, royalty_address, content_boc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (address) DO UPDATE SET deployed_at = now()
		RETURNING ` + deploymentColumns

	out, err := scanDeployment(s.pool.QueryRow(ctx, query,
		d.Address, d.Network, d.Owner, d.Name, d.Description, d.Image,
		int32(d.RoyaltyFactor), int32(d.RoyaltyBase), d.RoyaltyAddress, d.ContentBOC,
	))
	if err != nil {
		return nil, fmt.Errorf("record deployment: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetDeployment(ctx context.Context, address string) (*Deployment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + deploymentColumns + ` FROM collections WHERE address = $1`

	d, err := scanDeployment(s.pool.QueryRow(ctx, query, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get deployment: %w", err)
	}
	return d, nil
}

const mintColumns = `added_id, id, collection, item_index, item_address, owner, query_id,
	name, description, image, exit_code, tx_hash, created_at`

func scanMint(row pgx.Row) (*Mint, error) {
	var m Mint
	var index, queryID int64
	if err := row.Scan(&m.AddedID, &m.ID, &m.Collection, &index, &m.ItemAddress, &m.Owner, &queryID,
		&m.Name, &m.Description, &m.Image, &m.ExitCode, &m.TxHash, &m.CreatedAt); err != nil {
		return nil, err
	}
	// Both are stored bit-for-bit in BIGINT.
	m.ItemIndex, m.QueryID = uint64(index), uint64(queryID)
	return &m, nil
}

func (s *PostgresStore) RecordMint(ctx context.Context, m Mint) (*Mint, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	query := `
		INSERT INTO mints (id, collection, item_index, item_address, owner, query_id,
			name, description, image, exit_code, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + mintColumns

	out, err := scanMint(s.pool.QueryRow(ctx, query,
		m.ID, m.Collection, int64(m.ItemIndex), m.ItemAddress, m.Owner, int64(m.QueryID),
		m.Name, m.Description, m.Image, m.ExitCode, m.TxHash,
	))
	if err != nil {
		return nil, fmt.Errorf("record mint: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListMints(ctx context.Context, collection string, cursor string, limit int) (*Page, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	limit = clampLimit(limit)
	pos, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + mintColumns + `
		FROM mints
		WHERE collection = $1 AND added_id > $2
		ORDER BY added_id ASC
		LIMIT $3`

	// One extra row tells whether another page exists.
	rows, err := s.pool.Query(ctx, query, collection, pos.AddedID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}
	defer rows.Close()

	var mints []Mint
	for rows.Next() {
		m, err := scanMint(rows)
		if err != nil {
			return nil, fmt.Errorf("list mints scan: %w", err)
		}
		mints = append(mints, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mints rows: %w", err)
	}

	return paginate(mints, limit), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

// paginate trims a limit+1 result to a page and sets the next cursor.
func paginate(mints []Mint, limit int) *Page {
	page := &Page{Mints: mints}
	if len(mints) > limit {
		page.Mints = mints[:limit]
		page.HasMore = true
		page.NextCursor = Cursor{AddedID: page.Mints[limit-1].AddedID}.Encode()
	}
	if page.Mints == nil {
		page.Mints = []Mint{}
	}
	return page
}
