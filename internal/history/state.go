package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ForexLens/internal/model"
)

// State is the on-disk form of a Buffer.
type State struct {
	Window    string                          `json:"window"`
	Points    map[string][]model.HistoryPoint `json:"points"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// LoadState reads a state file. A missing file yields an empty state.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Points: map[string][]model.HistoryPoint{}}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse history state %s: %w", filePath, err)
	}
	if state.Points == nil {
		state.Points = map[string][]model.HistoryPoint{}
	}
	return &state, nil
}

// SaveState writes the buffer to a JSON file.
func SaveState(filePath string, b *Buffer) error {
	state := State{
		Window:    b.Window().String(),
		Points:    make(map[string][]model.HistoryPoint),
		UpdatedAt: time.Now(),
	}
	for pair, pts := range b.Snapshot() {
		state.Points[pair.String()] = pts
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	return os.WriteFile(filePath, data, 0644)
}

// Restore replays a saved state into the buffer. Each pair's points are
// pruned against its newest point, so stale files shrink on load.
func (b *Buffer) Restore(state *State) error {
	for key, pts := range state.Points {
		pair, err := model.ParsePair(key)
		if err != nil {
			return fmt.Errorf("restore history: %w", err)
		}
		for _, p := range pts {
			b.Append(model.Quote{Pair: pair, Rate: p.Rate, Bid: p.Bid, Ask: p.Ask, Time: p.Time})
		}
	}
	return nil
}

// Load builds a buffer from a state file.
func Load(filePath string, window time.Duration) (*Buffer, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	b := NewBuffer(window)
	if err := b.Restore(state); err != nil {
		return nil, err
	}
	return b, nil
}
