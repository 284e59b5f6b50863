package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

// SnapshotVersion is bumped when the stored layout changes
const SnapshotVersion = "1"

// Snapshot is the persisted open-position set
type Snapshot struct {
	Version   string               `json:"version"`
	SavedAt   time.Time            `json:"saved_at"`
	Positions []*position.Position `json:"positions"`
}

func encode(positions []*position.Position, now time.Time) ([]byte, error) {
	if positions == nil {
		positions = []*position.Position{}
	}
	data, err := json.MarshalIndent(&Snapshot{
		Version:   SnapshotVersion,
		SavedAt:   now.UTC(),
		Positions: positions,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]*position.Position, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	if err := validate(&snap); err != nil {
		return nil, err
	}
	return snap.Positions, nil
}

// validate rejects snapshots the manager could not safely restore
func validate(snap *Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported state version %q", snap.Version)
	}
	seen := make(map[string]bool, len(snap.Positions))
	for _, p := range snap.Positions {
		if p == nil {
			continue
		}
		if seen[p.Symbol] {
			return fmt.Errorf("state holds two positions for %s", p.Symbol)
		}
		seen[p.Symbol] = true
	}
	return nil
}
