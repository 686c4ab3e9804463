package routerx

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// RouterConfig describes a router tree in JSON.
type RouterConfig struct {
	// Kind is one of base, reduce, topk_reduce, fan_out or pipeline.
	Kind string `json:"kind"`

	// ReduceOp is the topk_reduce operator.
	ReduceOp string `json:"reduce_op,omitempty"`

	// Descending is the topk_reduce sort direction. Defaults to true.
	Descending *bool `json:"descending,omitempty"`

	// TopK caps topk_reduce output; 0 keeps every key.
	TopK int `json:"top_k,omitempty"`

	// Key is the topk_reduce key strategy: doc, chunk or chunk_to_doc.
	Key string `json:"key,omitempty"`

	// Parts is the fan_out part count.
	Parts int `json:"parts,omitempty"`

	// Routers are the pipeline stages.
	Routers []RouterConfig `json:"routers,omitempty"`
}

// LoadConfig decodes a RouterConfig from JSON.
func LoadConfig(r io.Reader) (RouterConfig, error) {
	var cfg RouterConfig
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return RouterConfig{}, errors.WithSecondaryError(
			ErrInvalidConfiguration,
			errors.Wrap(err, "failed to decode router config"),
		)
	}
	return cfg, nil
}

// Build constructs the router described by cfg. opts are passed to every
// router in the tree; per-router fields in cfg take precedence.
func Build(cfg RouterConfig, opts ...Option) (Router, error) {
	return build(cfg, "root", opts)
}

func build(cfg RouterConfig, path string, opts []Option) (Router, error) {
	switch cfg.Kind {
	case "base":
		return Base{}, nil

	case "reduce":
		return NewReduceRouter(opts...), nil

	case "topk_reduce":
		op, err := ParseReduceOp(cfg.ReduceOp)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		keyName := cfg.Key
		if keyName == "" {
			keyName = "doc"
		}
		keys, ok := keyFuncsByName[keyName]
		if !ok {
			return nil, errors.WithSecondaryError(
				ErrInvalidConfiguration,
				errors.Newf("%s: unknown key strategy %q", path, keyName),
			)
		}
		topkOpts := append([]Option{}, opts...)
		if cfg.Descending != nil {
			topkOpts = append(topkOpts, WithDescending(*cfg.Descending))
		}
		if cfg.TopK > 0 {
			topkOpts = append(topkOpts, WithTopK(cfg.TopK))
		}
		r, err := NewTopkReduceRouter(op, keys(), topkOpts...)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		return r, nil

	case "fan_out":
		r, err := NewFanOutRouter(cfg.Parts)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		return r, nil

	case "pipeline":
		routers := make([]Router, 0, len(cfg.Routers))
		for i, child := range cfg.Routers {
			r, err := build(child, fmt.Sprintf("%s.routers[%d]", path, i), opts)
			if err != nil {
				return nil, err
			}
			routers = append(routers, r)
		}
		p, err := NewPipeline(routers, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		return p, nil

	default:
		return nil, errors.WithSecondaryError(
			ErrInvalidConfiguration,
			errors.Newf("%s: unknown router kind %q", path, cfg.Kind),
		)
	}
}
