package cfr

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const checkpointVersion = 1

// CheckpointState is the serializable snapshot of a solver: the iteration
// counter, the full regret-store export, and the RNG state needed to resume
// sampling without repeating draws already consumed.
type CheckpointState struct {
	Version   int                      `json:"version"`
	Iteration int64                    `json:"iteration"`
	Seed      uint64                   `json:"seed"`
	RNGState  []byte                   `json:"rng_state"`
	Entries   map[string]entrySnapshot `json:"entries"`
}

// ExportState captures the solver's entire state for checkpointing. The
// returned value round-trips through ImportState on a freshly constructed
// solver for the same game and config.
func (s *Solver[S, A]) ExportState() (CheckpointState, error) {
	rngState, err := s.pcg.MarshalBinary()
	if err != nil {
		return CheckpointState{}, fmt.Errorf("marshal rng state: %w", err)
	}
	return CheckpointState{
		Version:   checkpointVersion,
		Iteration: s.iteration,
		Seed:      s.seed,
		RNGState:  rngState,
		Entries:   s.store.export(),
	}, nil
}

// ImportState replaces the solver's iteration counter, RNG, and regret store
// with the contents of state.
func (s *Solver[S, A]) ImportState(state CheckpointState) error {
	if state.Version != checkpointVersion {
		return fmt.Errorf("unsupported checkpoint version %d", state.Version)
	}
	if len(state.RNGState) > 0 {
		if err := s.pcg.UnmarshalBinary(state.RNGState); err != nil {
			return fmt.Errorf("unmarshal rng state: %w", err)
		}
	}
	s.iteration = state.Iteration
	s.seed = state.Seed
	s.store.importSnapshots(state.Entries)
	return nil
}

// SaveCheckpoint writes the solver's exported state to path, atomically
// (write to a temp file in the same directory, then rename).
func (s *Solver[S, A]) SaveCheckpoint(path string) error {
	state, err := s.ExportState()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint previously written by SaveCheckpoint and
// applies it to s via ImportState.
func (s *Solver[S, A]) LoadCheckpoint(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	state, err := decodeCheckpoint(f)
	if err != nil {
		return err
	}
	return s.ImportState(state)
}

func decodeCheckpoint(r io.Reader) (CheckpointState, error) {
	var state CheckpointState
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return CheckpointState{}, err
	}
	if state.Version != checkpointVersion {
		return CheckpointState{}, fmt.Errorf("unsupported checkpoint version %d", state.Version)
	}
	return state, nil
}
