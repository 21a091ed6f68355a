// Package mcp provides a Model Context Protocol server over the
// clustering results store.
//
// It exposes read-only tools (dataset listing, dataset stats, cluster
// sizes, score sweeps, document samples) over stdio transport so
// agent frontends can inspect clustering output without touching the
// pipeline itself.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Kevin6098/thesis-split/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store   *store.Store
	Version string
}

// dbMu serializes MCP tool calls that touch the database. The mcp-go
// library dispatches handlers concurrently via goroutines, and SQLite
// reads are cheapest when not interleaved with the CLI writing results
// into the same file.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all result tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"thesis-split",
		ver,
		server.WithToolCapabilities(false),
	)

	registerDatasetsTool(s, cfg.Store)
	registerStatsTool(s, cfg.Store)
	registerClustersTool(s, cfg.Store)
	registerSweepTool(s, cfg.Store)
	registerSampleTool(s, cfg.Store)

	return s
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// --- Tools ---

func registerDatasetsTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("split_datasets",
		mcp.WithDescription("List dataset slugs with stored clustering results."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		datasets, err := st.ListDatasets(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing datasets: %v", err)), nil
		}
		data, _ := json.MarshalIndent(datasets, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("split_stats",
		mcp.WithDescription("Summarize one dataset's stored results: document counts, valid/invalid split, and number of clusters."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("dataset",
			mcp.Required(),
			mcp.Description("Dataset slug"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		dataset, err := req.RequireString("dataset")
		if err != nil {
			return mcp.NewToolResultError("dataset is required"), nil
		}

		stats, err := st.Stats(ctx, dataset)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerClustersTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("split_clusters",
		mcp.WithDescription("List cluster populations and top terms for a dataset. Cluster -1 is the bucket of documents excluded from clustering."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("dataset",
			mcp.Required(),
			mcp.Description("Dataset slug"),
		),
		mcp.WithNumber("terms",
			mcp.Description("Top terms per cluster (default: 10)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		dataset, err := req.RequireString("dataset")
		if err != nil {
			return mcp.NewToolResultError("dataset is required"), nil
		}
		limit := 10
		if termsVal, err := req.RequireFloat("terms"); err == nil && termsVal > 0 {
			limit = int(termsVal)
		}

		sizes, err := st.ClusterSizes(ctx, dataset)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cluster sizes error: %v", err)), nil
		}

		type clusterView struct {
			Cluster   int               `json:"cluster"`
			Documents int               `json:"documents"`
			TopTerms  []store.TermCount `json:"top_terms,omitempty"`
		}
		views := make([]clusterView, 0, len(sizes))
		for _, cs := range sizes {
			view := clusterView{Cluster: cs.Cluster, Documents: cs.Documents}
			if cs.Cluster >= 0 {
				terms, err := st.TopTerms(ctx, dataset, cs.Cluster, limit)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("top terms error: %v", err)), nil
				}
				view.TopTerms = terms
			}
			views = append(views, view)
		}
		data, _ := json.MarshalIndent(views, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSweepTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("split_sweep",
		mcp.WithDescription("Return the most recent cluster-count score sweep for a dataset: validity score per candidate k and the selected k."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("dataset",
			mcp.Required(),
			mcp.Description("Dataset slug"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		dataset, err := req.RequireString("dataset")
		if err != nil {
			return mcp.NewToolResultError("dataset is required"), nil
		}

		scores, bestK, err := st.LatestSweep(ctx, dataset)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sweep error: %v", err)), nil
		}
		if scores == nil {
			return mcp.NewToolResultText("no sweep recorded for this dataset"), nil
		}

		out := struct {
			BestK  int             `json:"best_k"`
			Scores map[int]float64 `json:"scores"`
		}{BestK: bestK, Scores: scores}
		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSampleTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("split_sample",
		mcp.WithDescription("Sample documents from one cluster of a dataset, in corpus order. Use cluster -1 to inspect documents excluded from clustering."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("dataset",
			mcp.Required(),
			mcp.Description("Dataset slug"),
		),
		mcp.WithNumber("cluster",
			mcp.Required(),
			mcp.Description("Cluster index, or -1 for the excluded bucket"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of documents (default: 10, max: 50)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		dataset, err := req.RequireString("dataset")
		if err != nil {
			return mcp.NewToolResultError("dataset is required"), nil
		}
		clusterVal, err := req.RequireFloat("cluster")
		if err != nil {
			return mcp.NewToolResultError("cluster is required"), nil
		}

		limit := 10
		if limitVal, err := req.RequireFloat("limit"); err == nil {
			limit = int(limitVal)
			if limit > 50 {
				limit = 50
			}
		}

		docs, err := st.SampleDocuments(ctx, dataset, int(clusterVal), limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sample error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(docs, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
