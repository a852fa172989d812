// mcpbridge translates MCP JSON-RPC on stdio into HTTP calls against a
// running analyzer service, so stdio-only MCP clients can use the detection
// API. Responses go to stdout, all logging goes to stderr.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/openntia/pfewatch/internal/logging"
)

const protocolVersion = "2024-11-05"

var (
	Version = "dev" // Injected via ldflags during build
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type callParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// toolSpec mirrors the MCP tool descriptor shape.
type toolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func toolList() []toolSpec {
	return []toolSpec{
		{
			Name: "check_suspicious_exceptions",
			Description: "Detect suspicious PFE exception patterns using heuristic rules and an " +
				"isolation-forest outlier model. Returns detections with device, slot, exception, " +
				"state (CRITICAL/HIGH/MEDIUM/LOW), rule, detected_at timestamp, details, and a " +
				"Grafana dashboard link.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"lookback_hours": map[string]interface{}{
						"type":        "integer",
						"description": "Hours to analyze for recent period (default: 1)",
						"default":     1,
					},
					"min_consecutive_samples": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum consecutive samples to confirm anomaly (default: 3)",
						"default":     3,
					},
					"use_ml": map[string]interface{}{
						"type":        "boolean",
						"description": "Run the isolation-forest outlier model in addition to the rules",
					},
					"use_dynamic_baseline": map[string]interface{}{
						"type":        "boolean",
						"description": "Use multi-window dynamic baselines instead of the static 2-day baseline",
					},
				},
			},
		},
		{
			Name:        "list_severities",
			Description: "List the severity classification for each known PFE exception type",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "list_dashboards",
			Description: "List all available Grafana dashboards",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "get_dashboard",
			Description: "Get details of a specific Grafana dashboard by its UID",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"uid": map[string]interface{}{
						"type":        "string",
						"description": "The unique identifier (UID) of the dashboard",
					},
				},
				"required": []string{"uid"},
			},
		},
	}
}

type bridge struct {
	serverURL string
	apiKey    string
	client    *http.Client
	logger    *logging.Logger
}

func (b *bridge) callTool(name string, args map[string]interface{}) (json.RawMessage, error) {
	switch name {
	case "check_suspicious_exceptions", "mcp_check_suspicious_exceptions":
		body, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		return b.do(http.MethodPost, "/v1/analyze", body, 2*time.Minute)
	case "list_severities", "mcp_list_severities":
		return b.do(http.MethodGet, "/v1/severities", nil, 10*time.Second)
	case "list_dashboards", "mcp_list_dashboards":
		return b.do(http.MethodGet, "/v1/dashboards", nil, 10*time.Second)
	case "get_dashboard", "mcp_get_dashboard":
		uid, _ := args["uid"].(string)
		if uid == "" {
			return nil, fmt.Errorf("get_dashboard requires a uid argument")
		}
		return b.do(http.MethodGet, "/v1/dashboards/"+uid, nil, 10*time.Second)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (b *bridge) do(method, path string, body []byte, timeout time.Duration) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, b.serverURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("X-API-Key", b.apiKey)
	}

	client := *b.client
	client.Timeout = timeout
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, string(payload))
	}
	return json.RawMessage(payload), nil
}

func (b *bridge) handle(req rpcRequest) rpcResponse {
	b.logger.Debug("Request received", "method", req.Method)

	switch req.Method {
	case "initialize":
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]interface{}{
				"protocolVersion": protocolVersion,
				"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
				"serverInfo": map[string]interface{}{
					"name":    "pfewatch-mcp",
					"version": Version,
				},
			},
		}

	case "tools/list":
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{"tools": toolList()},
		}

	case "tools/call":
		var params callParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return rpcResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &rpcError{Code: -32602, Message: "Invalid params", Data: err.Error()},
			}
		}

		b.logger.Info("Calling tool", "tool", params.Name)
		result, err := b.callTool(params.Name, params.Arguments)
		if err != nil {
			b.logger.Error("Tool call failed", "tool", params.Name, "error", err)
			return rpcResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &rpcError{Code: -32000, Message: err.Error()},
			}
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, result, "", "  "); err != nil {
			pretty.Write(result)
		}
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]interface{}{
				"content": []map[string]interface{}{
					{"type": "text", "text": pretty.String()},
				},
			},
		}

	default:
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32601, Message: fmt.Sprintf("Method not found: %s", req.Method)},
		}
	}
}

func main() {
	serverURL := flag.String("url", "http://localhost:3333", "Analyzer service base URL")
	apiKey := flag.String("api-key", os.Getenv("PFEWATCH_API_KEY"), "API key for the analyzer service (defaults to PFEWATCH_API_KEY)")
	flag.Parse()

	// stdout carries JSON-RPC only, so everything else goes to stderr
	logger := logging.NewWithWriter(os.Stderr, zerolog.InfoLevel)
	logger.Info("MCP bridge started", "server", *serverURL, "version", Version)

	b := &bridge{
		serverURL: *serverURL,
		apiKey:    *apiKey,
		client:    &http.Client{},
		logger:    logger,
	}

	out := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			logger.Error("JSON decode error", "error", err)
			_ = out.Encode(rpcResponse{
				JSONRPC: "2.0",
				Error:   &rpcError{Code: -32700, Message: "Parse error", Data: err.Error()},
			})
			continue
		}

		// Notifications carry no id and expect no response
		if req.ID == nil {
			logger.Debug("Notification ignored", "method", req.Method)
			continue
		}

		if err := out.Encode(b.handle(req)); err != nil {
			logger.Error("Failed to write response", "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("stdin read failed", "error", err)
	}
}
