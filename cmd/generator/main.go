package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/letmevibethatforyou/routerx"
	"github.com/letmevibethatforyou/routerx/inmemory"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"
)

var (
	topics = []string{
		"search", "index", "shard", "merge", "rank", "score", "query", "token",
		"vector", "chunk", "document", "cache", "replica", "stream", "batch",
	}

	fillers = []string{
		"the", "a", "with", "for", "across", "into", "over", "per", "and", "from",
	}
)

func generateParagraph(words int) string {
	parts := make([]string, words)
	for i := range parts {
		if rand.IntN(3) == 0 {
			parts[i] = fillers[rand.IntN(len(fillers))]
		} else {
			parts[i] = topics[rand.IntN(len(topics))]
		}
	}
	return strings.Join(parts, " ")
}

func generateDocument() string {
	paragraphs := make([]string, rand.IntN(4)+1)
	for i := range paragraphs {
		paragraphs[i] = generateParagraph(rand.IntN(12) + 4)
	}
	return strings.Join(paragraphs, "\n\n")
}

func buildBatch(ctx context.Context, shards []*inmemory.Shard, query string) (*routerx.Batch, error) {
	fan, err := routerx.NewFanOutRouter(len(shards))
	if err != nil {
		return nil, err
	}

	request := &routerx.Message{
		Envelope: routerx.Envelope{
			RequestID: ksuid.New().String(),
			NumPart:   []int{1},
		},
	}
	now := time.Now()
	request.Envelope.AddRoute("generator", now, now)

	seq, err := fan.Apply(ctx, request)
	if err != nil {
		return nil, err
	}

	batch := &routerx.Batch{}
	for part := range seq {
		shard := shards[part.Envelope.PartID-1]
		if err := shard.Search(ctx, part, query); err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", shard.Name(), err)
		}
		slog.InfoContext(ctx, "Shard answered",
			"shard", shard.Name(),
			"part_id", part.Envelope.PartID,
			"result_count", len(part.Response.Search.TopkResults),
		)
		batch.Accumulated = append(batch.Accumulated, part)
	}

	if len(batch.Accumulated) > 0 {
		batch.Message = batch.Accumulated[0].Clone()
	}
	return batch, nil
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	shardCount := c.Int("shards")
	docCount := c.Int("docs")
	query := c.String("query")

	if shardCount <= 0 {
		return fmt.Errorf("shards must be positive, got %d", shardCount)
	}

	slog.InfoContext(ctx, "Starting partial message generator",
		"shards", shardCount,
		"docs", docCount,
		"query", query,
	)

	shards := make([]*inmemory.Shard, shardCount)
	for i := range shards {
		shards[i] = inmemory.New(fmt.Sprintf("shard-%d", i), c.Int("shard-top-k"))
	}
	for i := 0; i < docCount; i++ {
		shards[rand.IntN(shardCount)].AddText(generateDocument())
	}

	batch, err := buildBatch(ctx, shards, query)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func main() {
	// Configure JSON logging for AWS environments
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	app := &cli.App{
		Name:  "generator",
		Usage: "Generate random shards, fan a query out and print the partial message batch",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "shards",
				Aliases: []string{"s"},
				Usage:   "Number of shards to fan out to",
				Value:   3,
			},
			&cli.IntFlag{
				Name:    "docs",
				Aliases: []string{"d"},
				Usage:   "Number of documents spread over the shards",
				Value:   50,
			},
			&cli.IntFlag{
				Name:  "shard-top-k",
				Usage: "Maximum number of chunks each shard returns; 0 returns all",
				Value: 10,
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Query sent to every shard",
				Value:   "merge rank",
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
