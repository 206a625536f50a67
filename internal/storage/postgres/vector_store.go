package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/idhash"
	"policy-impact-lab/internal/storage"
)

// VectorStore implements storage.VectorStore using PostgreSQL.
// Values are stored as double precision[] with a checksum for audit.
type VectorStore struct {
	pool *Pool
}

// NewVectorStore creates a new VectorStore.
func NewVectorStore(pool *Pool) *VectorStore {
	return &VectorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VectorStore = (*VectorStore)(nil)

const insertVectorQuery = `
	INSERT INTO scenario_vectors (
		dataset, scenario, variable, aggregation, vals, checksum, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func validVector(v *domain.ResultVector) bool {
	return v != nil && v.Dataset != "" && v.Scenario != "" && v.Variable != "" && v.Aggregation != ""
}

func vectorArgs(v *domain.ResultVector) []any {
	createdAt := v.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}
	values := v.Values
	if values == nil {
		values = []float64{}
	}
	return []any{
		v.Dataset,
		string(v.Scenario),
		v.Variable,
		string(v.Aggregation),
		values,
		idhash.ComputeVectorChecksum(values),
		createdAt,
	}
}

// Insert adds a new vector. Returns ErrDuplicateKey if the key exists.
func (s *VectorStore) Insert(ctx context.Context, v *domain.ResultVector) error {
	if !validVector(v) {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertVectorQuery, vectorArgs(v)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("insert scenario vector: %w", err)
	}
	return nil
}

// InsertBulk adds multiple vectors in one transaction. Fails entire batch on any duplicate.
func (s *VectorStore) InsertBulk(ctx context.Context, vectors []*domain.ResultVector) error {
	if len(vectors) == 0 {
		return nil
	}
	for _, v := range vectors {
		if !validVector(v) {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, v := range vectors {
		batch.Queue(insertVectorQuery, vectorArgs(v)...)
	}

	results := tx.SendBatch(ctx, batch)
	for range vectors {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			if isCheckViolation(err) {
				return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
			}
			return fmt.Errorf("insert scenario vector batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Get retrieves one vector. Returns ErrNotFound if not exists.
func (s *VectorStore) Get(ctx context.Context, dataset string, scenario domain.Scenario, variable string, aggregation domain.Aggregation) (*domain.ResultVector, error) {
	query := `
		SELECT dataset, scenario, variable, aggregation, vals, created_at
		FROM scenario_vectors
		WHERE dataset = $1 AND scenario = $2 AND variable = $3 AND aggregation = $4
	`

	row := s.pool.QueryRow(ctx, query, dataset, string(scenario), variable, string(aggregation))
	v, err := scanVector(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scenario vector: %w", err)
	}
	return v, nil
}

// ListVariables returns distinct variable names for a dataset and scenario, sorted ASC.
func (s *VectorStore) ListVariables(ctx context.Context, dataset string, scenario domain.Scenario) ([]string, error) {
	query := `
		SELECT DISTINCT variable
		FROM scenario_vectors
		WHERE dataset = $1 AND scenario = $2
		ORDER BY variable ASC
	`

	rows, err := s.pool.Query(ctx, query, dataset, string(scenario))
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect variables: %w", err)
	}
	return names, nil
}

// scanVector scans a single row into ResultVector.
func scanVector(row pgx.Row) (*domain.ResultVector, error) {
	var (
		v           domain.ResultVector
		scenario    string
		aggregation string
	)

	err := row.Scan(
		&v.Dataset,
		&scenario,
		&v.Variable,
		&aggregation,
		&v.Values,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Scenario = domain.Scenario(scenario)
	v.Aggregation = domain.Aggregation(aggregation)
	return &v, nil
}
