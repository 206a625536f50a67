package clickhouse

import (
	"context"
	"fmt"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/storage"
)

// ChartRowStore implements storage.ChartRowStore using ClickHouse.
type ChartRowStore struct {
	conn *Conn
}

// NewChartRowStore creates a new ChartRowStore.
func NewChartRowStore(conn *Conn) *ChartRowStore {
	return &ChartRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ChartRowStore = (*ChartRowStore)(nil)

type chartRowKey struct {
	chart  string
	series string
	seq    uint32
}

// existingKeys loads the keys already stored for a report.
func (s *ChartRowStore) existingKeys(ctx context.Context, reportID string) (map[chartRowKey]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT chart, series, seq
		FROM chart_rows FINAL
		WHERE report_id = ?
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("query chart row keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[chartRowKey]struct{})
	for rows.Next() {
		var k chartRowKey
		if err := rows.Scan(&k.chart, &k.series, &k.seq); err != nil {
			return nil, fmt.Errorf("scan chart row key: %w", err)
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// InsertBulk adds chart rows in one batch. Fails entire batch on any duplicate.
func (s *ChartRowStore) InsertBulk(ctx context.Context, rows []*domain.ChartRow) error {
	if len(rows) == 0 {
		return nil
	}

	// ReplacingMergeTree would silently replace, so duplicates are checked first.
	existing := make(map[string]map[chartRowKey]struct{})
	for _, r := range rows {
		if r == nil || r.ReportID == "" || r.Chart == "" || r.Seq < 0 {
			return storage.ErrInvalidInput
		}
		keys, ok := existing[r.ReportID]
		if !ok {
			var err error
			keys, err = s.existingKeys(ctx, r.ReportID)
			if err != nil {
				return fmt.Errorf("check exists: %w", err)
			}
			existing[r.ReportID] = keys
		}
		k := chartRowKey{r.Chart, r.Series, uint32(r.Seq)}
		if _, dup := keys[k]; dup {
			return storage.ErrDuplicateKey
		}
		keys[k] = struct{}{} // catches intra-batch duplicates too
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO chart_rows (
			report_id, chart, series, seq, category, value, type, hover
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.ReportID, r.Chart, r.Series, uint32(r.Seq),
			r.Category, r.Value, r.Type, r.Hover,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByReport retrieves all rows of a report, ordered by chart, series, seq ASC.
func (s *ChartRowStore) GetByReport(ctx context.Context, reportID string) ([]*domain.ChartRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT report_id, chart, series, seq, category, value, type, hover
		FROM chart_rows FINAL
		WHERE report_id = ?
		ORDER BY chart, series, seq
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("query chart rows: %w", err)
	}
	defer rows.Close()

	var result []*domain.ChartRow
	for rows.Next() {
		var (
			r   domain.ChartRow
			seq uint32
		)
		if err := rows.Scan(&r.ReportID, &r.Chart, &r.Series, &seq, &r.Category, &r.Value, &r.Type, &r.Hover); err != nil {
			return nil, fmt.Errorf("scan chart row: %w", err)
		}
		r.Seq = int(seq)
		result = append(result, &r)
	}
	return result, rows.Err()
}

// ListReports returns the distinct report IDs, sorted ASC.
func (s *ChartRowStore) ListReports(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT report_id
		FROM chart_rows
		ORDER BY report_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan report id: %w", err)
		}
		result = append(result, id)
	}
	return result, rows.Err()
}
