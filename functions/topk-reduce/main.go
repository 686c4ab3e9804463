package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/routerx"
	"github.com/urfave/cli/v2"
)

type Handler struct {
	router routerx.Router
}

func NewHandler(router routerx.Router) *Handler {
	return &Handler{router: router}
}

// HandleBatch merges the accumulated messages of a batch into its message
// and returns the merged message.
func (h *Handler) HandleBatch(ctx context.Context, batch routerx.Batch) (*routerx.Message, error) {
	if batch.Message == nil {
		return nil, errors.New("batch has no message")
	}

	slog.InfoContext(ctx, "Reducing batch",
		"request_id", batch.Message.Envelope.RequestID,
		"accumulated_count", len(batch.Accumulated),
	)

	if _, err := h.router.Apply(ctx, batch.Message, batch.Accumulated...); err != nil {
		slog.ErrorContext(ctx, "Reduce failed", "error", err)
		return nil, err
	}

	return batch.Message, nil
}

func main() {
	app := &cli.App{
		Name:  "topk-reduce",
		Usage: "Serve top-k reduce calls as an AWS Lambda function",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Router config JSON file",
				EnvVars: []string{"ROUTERX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "reduce-op",
				Usage:   "Score reduce operator used when no config file is given",
				EnvVars: []string{"ROUTERX_REDUCE_OP"},
				Value:   "sum",
			},
			&cli.StringFlag{
				Name:    "key",
				Usage:   "Merge key used when no config file is given",
				EnvVars: []string{"ROUTERX_KEY"},
				Value:   "chunk_to_doc",
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := routerx.RouterConfig{
		Kind:     "topk_reduce",
		ReduceOp: c.String("reduce-op"),
		Key:      c.String("key"),
	}
	if path := c.String("config"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to open router config", "path", path, "error", err)
			return err
		}
		cfg, err = routerx.LoadConfig(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	router, err := routerx.Build(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build router", "error", err)
		return err
	}

	handler := NewHandler(router)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		slog.InfoContext(ctx, "Running in Lambda environment", "router", router.Kind().String())
		lambda.Start(handler.HandleBatch)
	} else {
		slog.InfoContext(ctx, "Function cannot run outside of AWS Lambda environment")
	}

	return nil
}
