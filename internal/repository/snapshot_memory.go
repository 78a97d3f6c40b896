package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	appErrors "github.com/noah-isme/sdg-impact-api/pkg/errors"
)

//go:embed fixtures/sample.json
var sampleFixture []byte

// LoadFixture reads a snapshot fixture from path, or the embedded sample when path is empty.
func LoadFixture(path string) (*models.Snapshot, error) {
	data := sampleFixture
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", path, err)
		}
		data = raw
	}
	return ParseFixture(data)
}

// ParseFixture decodes a JSON fixture and fills in derived collections.
func ParseFixture(data []byte) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if len(snapshot.Registrations) == 0 {
		snapshot.Registrations = models.FlattenRegistrations(snapshot.Students)
	}
	if len(snapshot.Goals) == 0 {
		snapshot.Goals = models.SDGGoals()
	}
	return &snapshot, nil
}

// MemorySnapshotRepository serves snapshots from an in-memory dataset.
type MemorySnapshotRepository struct {
	mu       sync.RWMutex
	snapshot *models.Snapshot
	now      func() time.Time
}

// NewMemorySnapshotRepository wraps the given dataset. The repository keeps its own copy.
func NewMemorySnapshotRepository(snapshot *models.Snapshot) *MemorySnapshotRepository {
	if snapshot == nil {
		snapshot = &models.Snapshot{Goals: models.SDGGoals()}
	}
	return &MemorySnapshotRepository{snapshot: snapshot.Clone(), now: time.Now}
}

// Snapshot returns a deep copy of the dataset stamped with the read time.
func (r *MemorySnapshotRepository) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := r.snapshot.Clone()
	r.mu.RUnlock()
	out.TakenAt = r.now().UTC()
	return out, nil
}

// Replace swaps the dataset wholesale.
func (r *MemorySnapshotRepository) Replace(snapshot *models.Snapshot) {
	clone := snapshot.Clone()
	r.mu.Lock()
	r.snapshot = clone
	r.mu.Unlock()
}

// DecrementStock takes one unit of a reward out of stock.
func (r *MemorySnapshotRepository) DecrementStock(ctx context.Context, rewardID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.snapshot.Rewards {
		reward := &r.snapshot.Rewards[i]
		if reward.ID != rewardID {
			continue
		}
		if reward.Stock <= 0 {
			return appErrors.ErrOutOfStock
		}
		reward.Stock--
		return nil
	}
	return appErrors.ErrNotFound
}

// IncrementStock returns one unit of a reward to stock, capped at its initial stock.
func (r *MemorySnapshotRepository) IncrementStock(ctx context.Context, rewardID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.snapshot.Rewards {
		reward := &r.snapshot.Rewards[i]
		if reward.ID != rewardID {
			continue
		}
		if reward.Stock < reward.InitialStock {
			reward.Stock++
		}
		return nil
	}
	return appErrors.ErrNotFound
}
