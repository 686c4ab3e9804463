package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/letmevibethatforyou/routerx"
	"github.com/urfave/cli/v2"
)

const defaultReduceOp = "sum"

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "reduce",
		Usage:     "Merge a batch of partial messages into one message",
		ArgsUsage: "[batch.json]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Router config JSON file; overrides the other router flags",
				EnvVars: []string{"ROUTERX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "reduce-op",
				Aliases: []string{"op"},
				Usage:   "Score reduce operator: sum, prod, max, min or avg",
				EnvVars: []string{"ROUTERX_REDUCE_OP"},
				Value:   defaultReduceOp,
			},
			&cli.StringFlag{
				Name:    "key",
				Aliases: []string{"k"},
				Usage:   "Merge key: doc, chunk or chunk_to_doc",
				EnvVars: []string{"ROUTERX_KEY"},
				Value:   "doc",
			},
			&cli.BoolFlag{
				Name:    "ascending",
				Usage:   "Sort merged results from lowest to highest score",
				EnvVars: []string{"ROUTERX_ASCENDING"},
			},
			&cli.IntFlag{
				Name:    "top-k",
				Aliases: []string{"n"},
				Usage:   "Maximum number of merged results; 0 keeps all",
				EnvVars: []string{"ROUTERX_TOP_K"},
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	ctx := c.Context

	cfg, err := routerConfig(c)
	if err != nil {
		return err
	}

	router, err := routerx.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	batch, err := readBatch(c.Args().First())
	if err != nil {
		return err
	}
	if batch.Message == nil {
		return fmt.Errorf("batch has no message")
	}

	slog.InfoContext(ctx, "reducing batch",
		"router", router.Kind().String(),
		"request_id", batch.Message.Envelope.RequestID,
		"accumulated_count", len(batch.Accumulated),
	)

	if _, err := router.Apply(ctx, batch.Message, batch.Accumulated...); err != nil {
		return fmt.Errorf("reduce failed: %w", err)
	}

	data, err := json.MarshalIndent(batch.Message, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func routerConfig(c *cli.Context) (routerx.RouterConfig, error) {
	if path := strings.TrimSpace(c.String("config")); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return routerx.RouterConfig{}, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()
		return routerx.LoadConfig(f)
	}

	topK := c.Int("top-k")
	if topK < 0 {
		slog.WarnContext(c.Context, "top-k cannot be negative; keeping all results", "top_k", topK)
		topK = 0
	}

	descending := !c.Bool("ascending")
	return routerx.RouterConfig{
		Kind:       "topk_reduce",
		ReduceOp:   c.String("reduce-op"),
		Key:        c.String("key"),
		Descending: &descending,
		TopK:       topK,
	}, nil
}

func readBatch(path string) (*routerx.Batch, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open batch: %w", err)
		}
		defer f.Close()
		r = f
	}

	var batch routerx.Batch
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	return &batch, nil
}
