package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// InterestMCPServer exposes the bridge's session history and persona
// bindings as MCP tools, relaying every call to the bridge HTTP API
type InterestMCPServer struct {
	server     *mcp.Server
	baseURL    string
	httpClient *http.Client
}

// NewServer creates a new interest MCP server talking to the bridge API
// at baseURL
func NewServer(baseURL string) *InterestMCPServer {
	s := &InterestMCPServer{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "interest-tools",
			Version: "v1.0.0",
		}, nil),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	s.registerTools()

	return s
}

// Run starts the MCP server with stdio transport
func (s *InterestMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools registers all bridge-related MCP tools
func (s *InterestMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List the session ids that have recorded conversation history.",
	}, s.handleListSessions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history_view",
		Description: "View the recorded conversation history of a session, including emotional state annotations.",
	}, s.handleHistoryView)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history_clear",
		Description: "Clear the recorded conversation history of a session.",
	}, s.handleHistoryClear)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "persona_get",
		Description: "Get the persona currently bound to a session, and the list of available personas.",
	}, s.handlePersonaGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "persona_set",
		Description: "Bind a named persona to a session, or pass an empty name to remove the binding.",
	}, s.handlePersonaSet)
}

// ListSessionsInput is empty - no input needed
type ListSessionsInput struct{}

// ListSessionsOutput contains the known session ids
type ListSessionsOutput struct {
	Sessions []string `json:"sessions"`
	Error    string   `json:"error,omitempty"`
}

func (s *InterestMCPServer) handleListSessions(ctx context.Context, req *mcp.CallToolRequest, input ListSessionsInput) (*mcp.CallToolResult, ListSessionsOutput, error) {
	var result ListSessionsOutput
	if err := s.get("/api/sessions", &result); err != nil {
		return nil, ListSessionsOutput{Error: err.Error()}, nil
	}
	return nil, result, nil
}

// HistoryViewInput selects the session to view
type HistoryViewInput struct {
	SessionID string `json:"session_id" jsonschema:"description=The session (chat) id to view"`
}

// HistoryViewOutput contains the rendered history
type HistoryViewOutput struct {
	View  string `json:"view"`
	Error string `json:"error,omitempty"`
}

func (s *InterestMCPServer) handleHistoryView(ctx context.Context, req *mcp.CallToolRequest, input HistoryViewInput) (*mcp.CallToolResult, HistoryViewOutput, error) {
	if input.SessionID == "" {
		return nil, HistoryViewOutput{Error: "session_id is required"}, nil
	}

	var result struct {
		View string `json:"view"`
	}
	if err := s.get("/api/history/"+url.PathEscape(input.SessionID), &result); err != nil {
		return nil, HistoryViewOutput{Error: err.Error()}, nil
	}
	return nil, HistoryViewOutput{View: result.View}, nil
}

// HistoryClearInput selects the session to clear
type HistoryClearInput struct {
	SessionID string `json:"session_id" jsonschema:"description=The session (chat) id to clear"`
}

// HistoryClearOutput reports the outcome
type HistoryClearOutput struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (s *InterestMCPServer) handleHistoryClear(ctx context.Context, req *mcp.CallToolRequest, input HistoryClearInput) (*mcp.CallToolResult, HistoryClearOutput, error) {
	if input.SessionID == "" {
		return nil, HistoryClearOutput{Error: "session_id is required"}, nil
	}

	var result struct {
		Result string `json:"result"`
	}
	if err := s.delete("/api/history/"+url.PathEscape(input.SessionID), &result); err != nil {
		return nil, HistoryClearOutput{Error: err.Error()}, nil
	}
	return nil, HistoryClearOutput{Result: result.Result}, nil
}

// PersonaGetInput selects the session to inspect
type PersonaGetInput struct {
	SessionID string `json:"session_id" jsonschema:"description=The session (chat) id to inspect"`
}

// PersonaGetOutput contains the binding and the available personas
type PersonaGetOutput struct {
	Persona   string   `json:"persona"`
	Available []string `json:"available"`
	Error     string   `json:"error,omitempty"`
}

func (s *InterestMCPServer) handlePersonaGet(ctx context.Context, req *mcp.CallToolRequest, input PersonaGetInput) (*mcp.CallToolResult, PersonaGetOutput, error) {
	if input.SessionID == "" {
		return nil, PersonaGetOutput{Error: "session_id is required"}, nil
	}

	var binding struct {
		Persona string `json:"persona"`
	}
	if err := s.get("/api/persona/"+url.PathEscape(input.SessionID), &binding); err != nil {
		return nil, PersonaGetOutput{Error: err.Error()}, nil
	}

	var list struct {
		Personas []string `json:"personas"`
	}
	if err := s.get("/api/personas", &list); err != nil {
		return nil, PersonaGetOutput{Error: err.Error()}, nil
	}

	return nil, PersonaGetOutput{Persona: binding.Persona, Available: list.Personas}, nil
}

// PersonaSetInput binds or unbinds a persona
type PersonaSetInput struct {
	SessionID string `json:"session_id" jsonschema:"description=The session (chat) id to bind"`
	Persona   string `json:"persona" jsonschema:"description=The persona name to bind; empty removes the binding"`
}

// PersonaSetOutput reports the new binding
type PersonaSetOutput struct {
	Persona string `json:"persona"`
	Error   string `json:"error,omitempty"`
}

func (s *InterestMCPServer) handlePersonaSet(ctx context.Context, req *mcp.CallToolRequest, input PersonaSetInput) (*mcp.CallToolResult, PersonaSetOutput, error) {
	if input.SessionID == "" {
		return nil, PersonaSetOutput{Error: "session_id is required"}, nil
	}

	path := "/api/persona/" + url.PathEscape(input.SessionID)

	if input.Persona == "" {
		if err := s.delete(path, nil); err != nil {
			return nil, PersonaSetOutput{Error: err.Error()}, nil
		}
		return nil, PersonaSetOutput{Persona: ""}, nil
	}

	if err := s.put(path, map[string]string{"persona": input.Persona}, nil); err != nil {
		return nil, PersonaSetOutput{Error: err.Error()}, nil
	}
	return nil, PersonaSetOutput{Persona: input.Persona}, nil
}

// ============ Bridge API helpers ============

func (s *InterestMCPServer) get(path string, result interface{}) error {
	resp, err := s.httpClient.Get(s.baseURL + path)
	if err != nil {
		return fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, result)
}

func (s *InterestMCPServer) put(path string, body interface{}, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPut, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP PUT failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, result)
}

func (s *InterestMCPServer) delete(path string, result interface{}) error {
	req, err := http.NewRequest(http.MethodDelete, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP DELETE failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, result)
}

func decodeResponse(resp *http.Response, result interface{}) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
