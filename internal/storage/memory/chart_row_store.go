package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"policy-impact-lab/internal/domain"
	"policy-impact-lab/internal/storage"
)

// ChartRowStore is an in-memory implementation of storage.ChartRowStore.
type ChartRowStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ChartRow
}

// NewChartRowStore creates a new in-memory chart row store.
func NewChartRowStore() *ChartRowStore {
	return &ChartRowStore{
		data: make(map[string]*domain.ChartRow),
	}
}

func chartRowKey(r *domain.ChartRow) string {
	return fmt.Sprintf("%s|%s|%s|%d", r.ReportID, r.Chart, r.Series, r.Seq)
}

// InsertBulk adds chart rows atomically. Fails entire batch on any duplicate.
func (s *ChartRowStore) InsertBulk(_ context.Context, rows []*domain.ChartRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.ReportID == "" || r.Chart == "" {
			return storage.ErrInvalidInput
		}
		key := chartRowKey(r)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		copy := *r
		s.data[chartRowKey(r)] = &copy
	}
	return nil
}

// GetByReport retrieves all rows of a report, ordered by chart, series, seq ASC.
func (s *ChartRowStore) GetByReport(_ context.Context, reportID string) ([]*domain.ChartRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ChartRow
	for _, r := range s.data {
		if r.ReportID == reportID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Chart != result[j].Chart {
			return result[i].Chart < result[j].Chart
		}
		if result[i].Series != result[j].Series {
			return result[i].Series < result[j].Series
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// ListReports returns the distinct report IDs, sorted ASC.
func (s *ChartRowStore) ListReports(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range s.data {
		seen[r.ReportID] = struct{}{}
	}
	result := make([]string, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

var _ storage.ChartRowStore = (*ChartRowStore)(nil)
