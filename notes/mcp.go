package notes

import (
	"context"
	"fmt"

	"github.com/westshgit/apidoc/mcp"
)

// ServerName is the name announced in the MCP handshake.
const ServerName = "AI Sticky Notes"

// LatestURI addresses the most recent note as an MCP resource.
const LatestURI = "notes://latest"

// Register exposes store on srv as the add_note and read_notes tools, the
// notes://latest resource and the note_summary_prompt prompt.
func Register(srv *mcp.Server, store *Store) {
	srv.RegisterTool(mcp.Tool{
		Name:        "add_note",
		Description: "Append a new note to the sticky note file.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"message"},
		},
	}, func(_ context.Context, args map[string]any) (string, error) {
		message, ok := args["message"].(string)
		if !ok {
			return "", fmt.Errorf("add_note: message must be a string")
		}
		return store.Add(message)
	})

	srv.RegisterTool(mcp.Tool{
		Name:        "read_notes",
		Description: "Get all notes from the sticky note file.",
	}, func(context.Context, map[string]any) (string, error) {
		return store.All()
	})

	srv.RegisterResource(mcp.Resource{
		URI:         LatestURI,
		Name:        "get_latest_note",
		Description: "Get the most recently added note.",
		MimeType:    "text/plain",
	}, func(context.Context) (string, error) {
		return store.Latest()
	})

	srv.RegisterPrompt(mcp.Prompt{
		Name:        "note_summary_prompt",
		Description: "Generate a prompt asking the AI to summarize all current notes.",
	}, func(context.Context, map[string]string) (string, error) {
		return store.SummaryPrompt()
	})
}
