// Package classifier loads a trained churn model artifact and runs
// batched inference.
//
// Training happens offline; the job exports the fitted gradient-boosted
// model as a JSON artifact of additive regression stumps plus a bias,
// squashed through a sigmoid at prediction time. The artifact carries its
// own version label and feature order, and the loader refuses artifacts
// whose feature order does not match the order the pipeline builds rows
// in — a silently shuffled matrix is the one bug a scoring system cannot
// afford.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

var (
	ErrNoFeatures      = errors.New("model artifact lists no features")
	ErrFeatureMismatch = errors.New("model artifact feature order does not match pipeline feature order")
	ErrNoVersion       = errors.New("model artifact has no version label")
)

// Stump is one regression stump: it contributes Left to the raw score
// when the feature value is below Threshold, Right otherwise.
type Stump struct {
	Feature   string  `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// Artifact is the on-disk model export.
type Artifact struct {
	Version  string   `json:"version"`
	Features []string `json:"features"`
	Bias     float64  `json:"bias"`
	Stumps   []Stump  `json:"stumps"`
}

// Model is a loaded, ready-to-score classifier. Immutable after Load;
// the scoring engine swaps whole models on hot reload.
type Model struct {
	version string
	bias    float64
	stumps  []indexedStump
}

type indexedStump struct {
	idx       int
	threshold float64
	left      float64
	right     float64
}

// Load reads a model artifact from path and validates it against the
// feature order the pipeline will build rows in.
func Load(path string, featureOrder []string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	return FromArtifact(&art, featureOrder)
}

// FromArtifact builds a Model from a parsed artifact.
func FromArtifact(art *Artifact, featureOrder []string) (*Model, error) {
	if art.Version == "" {
		return nil, ErrNoVersion
	}
	if len(art.Features) == 0 {
		return nil, ErrNoFeatures
	}
	if len(art.Features) != len(featureOrder) {
		return nil, ErrFeatureMismatch
	}
	index := make(map[string]int, len(featureOrder))
	for i, name := range featureOrder {
		if art.Features[i] != name {
			return nil, ErrFeatureMismatch
		}
		index[name] = i
	}

	m := &Model{version: art.Version, bias: art.Bias}
	for _, s := range art.Stumps {
		idx, ok := index[s.Feature]
		if !ok {
			return nil, fmt.Errorf("stump references unknown feature %q", s.Feature)
		}
		m.stumps = append(m.stumps, indexedStump{
			idx:       idx,
			threshold: s.Threshold,
			left:      s.Left,
			right:     s.Right,
		})
	}
	return m, nil
}

// Version returns the artifact's version label.
func (m *Model) Version() string {
	return m.version
}

// PredictProba scores a batch of feature rows, returning one churn
// probability per row in order.
func (m *Model) PredictProba(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = m.predictOne(row)
	}
	return out
}

func (m *Model) predictOne(row []float64) float64 {
	raw := m.bias
	for _, s := range m.stumps {
		if row[s.idx] < s.threshold {
			raw += s.left
		} else {
			raw += s.right
		}
	}
	return sigmoid(raw)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
