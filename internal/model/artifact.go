package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/trafficlens/congestion-predictor/internal/domain"
)

// artifactVersion guards against loading a model written by an incompatible
// build.
const artifactVersion = 1

type artifact struct {
	Version int     `json:"version"`
	Forest  *Forest `json:"forest"`
}

// Save writes a trained forest to path as JSON.
func Save(path string, f *Forest) error {
	if !f.Fitted() {
		return errors.New("save model: forest is not trained")
	}
	data, err := json.Marshal(artifact{Version: artifactVersion, Forest: f})
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// Load reads a forest written by Save. A missing file yields
// domain.ErrMissingArtifact.
func Load(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: model %s", domain.ErrMissingArtifact, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("decode model: unsupported version %d", a.Version)
	}
	if a.Forest == nil || !a.Forest.Fitted() {
		return nil, errors.New("decode model: no trees")
	}
	if err := a.Forest.checkStructure(); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return a.Forest, nil
}

// checkStructure rejects trees that predict could not walk safely. Children
// always follow their parent in the node slice, which also rules out cycles.
func (f *Forest) checkStructure() error {
	if len(f.Features) == 0 || len(f.Classes) == 0 {
		return errors.New("missing feature or class names")
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d: no nodes", ti)
		}
		for i, n := range t.Nodes {
			if n.Feature == leaf {
				if len(n.Dist) != len(f.Classes) {
					return fmt.Errorf("tree %d node %d: leaf has %d classes, want %d", ti, i, len(n.Dist), len(f.Classes))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(f.Features) {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, i, n.Feature)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= i || child >= len(t.Nodes) {
					return fmt.Errorf("tree %d node %d: child %d out of range", ti, i, child)
				}
			}
		}
	}
	return nil
}
