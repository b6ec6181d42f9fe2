package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rameshbaboov/docmerger/internal/config"
)

// version is set by the linker at build time.
var version = "dev"

// NewMergeMCPServer creates an MCP server with the 3 merge tools registered:
// run_pass, get_status, and list_processed.
func NewMergeMCPServer(invoker PassInvoker, cfg config.Settings) *mcp.Server {
	svc := NewMergeService(invoker, cfg)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docmerger",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_pass",
		Description: "Run a single merge pass over the input folder. Returns how many documents were merged, failed, and skipped.",
	}, svc.RunPass)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Get the merge status: pending, succeeded, and failed documents in the input folder, and the artifact's last merged source.",
	}, svc.GetStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_processed",
		Description: "List the processing ledger rows in recorded order. Use limit to fetch only the most recent entries.",
	}, svc.ListProcessed)

	return server
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
