// Package controlplane exposes the live-tunable keys the pipeline shares
// with operators and the offline training job.
//
// Every key is independently read and written; staleness of a few hundred
// milliseconds is acceptable by design. Values are untrusted external
// input: each accessor validates and falls back to a default rather than
// failing, so a fat-fingered SET never takes the pipeline down.
package controlplane

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/mdresser/churnpipe/internal/idgen"
)

// Keys shared with external processes. An analyst process writes
// config:* values; the simulator owns run:current_id but the batcher
// mints one when it is absent.
const (
	KeyCurrentRunID   = "run:current_id"
	KeyChurnThreshold = "config:churn_threshold"
	KeyModelReload    = "config:model_reload"
	KeyTrainParams    = "config:train_params"
)

// DefaultThreshold applies when config:churn_threshold is absent or invalid.
const DefaultThreshold = 0.3

// KV is the small key-value surface the client needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// GetDel atomically reads and deletes a key, returning "" if absent.
	GetDel(ctx context.Context, key string) (string, error)
}

// Client is a typed accessor over the shared key-value space.
type Client struct {
	kv KV
}

// NewClient creates a control-plane client over the given key-value store.
func NewClient(kv KV) *Client {
	return &Client{kv: kv}
}

// Threshold returns the live churn threshold, defaulting on absence,
// parse failure, out-of-range values, or read errors.
func (c *Client) Threshold(ctx context.Context) float64 {
	raw, err := c.kv.Get(ctx, KeyChurnThreshold)
	if err != nil || raw == "" {
		return DefaultThreshold
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return DefaultThreshold
	}
	return v
}

// SetThreshold publishes a new churn threshold.
func (c *Client) SetThreshold(ctx context.Context, v float64) error {
	return c.kv.Set(ctx, KeyChurnThreshold, strconv.FormatFloat(v, 'f', -1, 64))
}

// ConsumeModelReload atomically reads and clears the reload flag. Any
// non-empty value counts as a request; read errors do not.
func (c *Client) ConsumeModelReload(ctx context.Context) bool {
	raw, err := c.kv.GetDel(ctx, KeyModelReload)
	return err == nil && raw != ""
}

// RequestModelReload sets the reload flag for the scoring engine.
func (c *Client) RequestModelReload(ctx context.Context) error {
	return c.kv.Set(ctx, KeyModelReload, "1")
}

// TrainParams returns the hyperparameter overrides for the offline
// trainer. The pipeline only relays this blob; an unreadable or invalid
// value degrades to an empty map.
func (c *Client) TrainParams(ctx context.Context) map[string]any {
	raw, err := c.kv.Get(ctx, KeyTrainParams)
	if err != nil || raw == "" {
		return map[string]any{}
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return map[string]any{}
	}
	return params
}

// SetTrainParams publishes hyperparameter overrides as JSON.
func (c *Client) SetTrainParams(ctx context.Context, params map[string]any) error {
	blob, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, KeyTrainParams, string(blob))
}

// RunID returns the current run identifier, minting and publishing a
// fallback when none is set. Callers re-invoke this on every flush so a
// run rotation is picked up without a restart.
func (c *Client) RunID(ctx context.Context) (string, error) {
	raw, err := c.kv.Get(ctx, KeyCurrentRunID)
	if err != nil {
		return "", err
	}
	if raw != "" {
		return raw, nil
	}

	minted := idgen.New()
	if err := c.kv.Set(ctx, KeyCurrentRunID, minted); err != nil {
		return "", err
	}
	return minted, nil
}
