package store

import (
	"context"
	"errors"

	"github.com/seantiz/snakebridge/internal/model"
)

// ErrNotFound is returned when a call record does not exist.
var ErrNotFound = errors.New("call not found")

// CallStats holds aggregate journal statistics.
type CallStats struct {
	Total         int            `json:"total"`
	CountByKind   map[string]int `json:"count_by_kind"`
	CountByStatus map[string]int `json:"count_by_status"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store is the journal of handled calls.
type Store interface {
	RecordCall(ctx context.Context, c *model.Call) error
	GetCall(ctx context.Context, id string) (*model.Call, error)
	// ListCalls returns calls newest first. An empty kind matches every kind.
	ListCalls(ctx context.Context, kind string, limit, offset int) ([]*model.Call, int, error)
	GetCallStats(ctx context.Context) (*CallStats, error)
	Close() error
}
