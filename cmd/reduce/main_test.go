package main

import (
	"testing"

	"github.com/letmevibethatforyou/routerx"
	"github.com/urfave/cli/v2"
)

func captureConfig(t *testing.T, args ...string) routerx.RouterConfig {
	t.Helper()
	var cfg routerx.RouterConfig
	app := newApp()
	app.Action = func(c *cli.Context) error {
		var err error
		cfg, err = routerConfig(c)
		return err
	}
	if err := app.Run(append([]string{"reduce"}, args...)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return cfg
}

func TestRouterConfigDefaults(t *testing.T) {
	cfg := captureConfig(t)

	if cfg.Kind != "topk_reduce" || cfg.ReduceOp != defaultReduceOp || cfg.Key != "doc" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Descending == nil || !*cfg.Descending {
		t.Error("Expected descending by default")
	}
	if cfg.TopK != 0 {
		t.Errorf("Expected top-k 0, got %d", cfg.TopK)
	}
}

func TestRouterConfigFromEnv(t *testing.T) {
	t.Setenv("ROUTERX_REDUCE_OP", "max")
	t.Setenv("ROUTERX_KEY", "chunk")
	t.Setenv("ROUTERX_ASCENDING", "true")
	t.Setenv("ROUTERX_TOP_K", "5")

	cfg := captureConfig(t)

	if cfg.ReduceOp != "max" || cfg.Key != "chunk" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Descending == nil || *cfg.Descending {
		t.Error("Expected ROUTERX_ASCENDING to select ascending order")
	}
	if cfg.TopK != 5 {
		t.Errorf("Expected ROUTERX_TOP_K to set top-k 5, got %d", cfg.TopK)
	}
}

func TestRouterConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("ROUTERX_TOP_K", "5")

	cfg := captureConfig(t, "--top-k", "2")
	if cfg.TopK != 2 {
		t.Errorf("Expected top-k 2, got %d", cfg.TopK)
	}
}

func TestRouterConfigNegativeTopK(t *testing.T) {
	cfg := captureConfig(t, "--top-k", "-3")
	if cfg.TopK != 0 {
		t.Errorf("Expected negative top-k to keep all results, got %d", cfg.TopK)
	}
}
