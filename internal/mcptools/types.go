package mcptools

// --- MCP tool types for the merge server mode (--serve-mcp) ---
// These tools let an MCP client drive merge passes and inspect state
// instead of shelling out to the CLI.

// RunPassInput is the input for the run_pass MCP tool. A pass takes no
// parameters; the folder, extension, and strategy come from the server's
// configuration.
type RunPassInput struct{}

// RunPassOutput is the result of the run_pass MCP tool.
type RunPassOutput struct {
	PassID       string   `json:"passId,omitempty"`
	Status       string   `json:"status"` // "completed", "busy", or "failed"
	Candidates   int      `json:"candidates"`
	Merged       int      `json:"merged"`
	Failed       int      `json:"failed"`
	Skipped      int      `json:"skipped"`
	Recovered    []string `json:"recovered,omitempty"`
	ArtifactPath string   `json:"artifactPath,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// GetStatusInput is the input for the get_status MCP tool.
type GetStatusInput struct{}

// GetStatusOutput is the result of the get_status MCP tool.
type GetStatusOutput struct {
	InputDir       string        `json:"inputDir"`
	ArtifactPath   string        `json:"artifactPath"`
	ArtifactExists bool          `json:"artifactExists"`
	LastMerged     string        `json:"lastMerged,omitempty"`
	Pending        int           `json:"pending"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	Files          []FileOutcome `json:"files"`
}

// FileOutcome is one candidate document and its recorded outcome.
type FileOutcome struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"` // "success", "error", or "pending"
}

// ListProcessedInput is the input for the list_processed MCP tool.
type ListProcessedInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"return only the most recent N ledger rows (0 = all)"`
}

// ListProcessedOutput is the result of the list_processed MCP tool.
type ListProcessedOutput struct {
	Entries []FileOutcome `json:"entries"`
	Total   int           `json:"total"`
}
