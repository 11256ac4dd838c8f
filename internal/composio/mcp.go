package composio

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPTransport executes tool calls against a local MCP server
// subprocess (see cmd/drive-mcp-server) instead of the hosted REST
// endpoint. It speaks the current keyword convention only; other
// payload layouts are rejected as signature mismatches.
type MCPTransport struct {
	serverPath string
	client     *mcp.Client
	session    *mcp.ClientSession
}

func NewMCPTransport(serverPath string) *MCPTransport {
	return &MCPTransport{serverPath: serverPath}
}

// Connect starts the tool server subprocess and opens a stdio session.
func (t *MCPTransport) Connect(ctx context.Context) error {
	log.Printf("🔗 Connecting to tool MCP server via stdio: %s", t.serverPath)

	t.client = mcp.NewClient(&mcp.Implementation{
		Name:    "course-planner",
		Version: "1.0.0",
	}, nil)

	cmd := exec.CommandContext(ctx, t.serverPath)
	cmd.Env = os.Environ()

	session, err := t.client.Connect(ctx, mcp.NewCommandTransport(cmd))
	if err != nil {
		return fmt.Errorf("failed to connect to tool MCP server: %w", err)
	}

	t.session = session
	log.Printf("✅ Connected to tool MCP server")
	return nil
}

func (t *MCPTransport) Close() error {
	if t.session != nil {
		return t.session.Close()
	}
	return nil
}

func (t *MCPTransport) Call(ctx context.Context, payload map[string]any) (any, error) {
	if t.session == nil {
		return nil, fmt.Errorf("MCP session not connected")
	}

	slug, ok := payload["slug"].(string)
	if !ok {
		return nil, &SignatureError{Convention: "mcp", Detail: "payload carries no slug field"}
	}
	args, ok := payload["arguments"].(map[string]any)
	if !ok {
		return nil, &SignatureError{Convention: "mcp", Detail: "payload carries no arguments field"}
	}
	// user identity is implicit: the local server owns a single account

	result, err := t.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      slug,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("MCP call %s: %w", slug, err)
	}

	var responseText string
	for _, content := range result.Content {
		if textContent, ok := content.(*mcp.TextContent); ok {
			responseText += textContent.Text
		}
	}

	normalized := map[string]any{"successful": !result.IsError}
	if result.Meta != nil {
		normalized["data"] = map[string]any(result.Meta)
	} else if responseText != "" {
		normalized["data"] = responseText
	}
	if result.IsError {
		normalized["error"] = responseText
		if responseText == "" {
			normalized["error"] = fmt.Sprintf("tool %s returned error", slug)
		}
	}
	return normalized, nil
}
