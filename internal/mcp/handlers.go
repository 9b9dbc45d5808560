// file: internal/mcp/handlers.go
package mcp

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/freshbooks-mcp/internal/mcp/state"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

const instructions = "Use the FreshBooks tools to read and log time entries and to look up invoices. " +
	"Failed calls return a JSON-RPC error whose data says whether the failure is recoverable and what to do next."

func (s *Server) handleInitialize(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	var req InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, mcperror.New(mcperror.CodeInvalidParams, "Invalid params for initialize: "+err.Error(), mcperror.Context{})
		}
	}

	version := supportedProtocolVersions[0]
	if slices.Contains(supportedProtocolVersions, req.ProtocolVersion) {
		version = req.ProtocolVersion
	} else {
		s.logger.Warn("Client requested an unsupported protocol version.",
			"clientRequested", req.ProtocolVersion, "serverRespondingWith", version)
	}
	s.logger.Info("Handling initialize request.", "clientName", req.ClientInfo.Name, "protocolVersion", version)

	return marshalResult(InitializeResult{
		ProtocolVersion: version,
		Capabilities:    ServerCapabilities{Tools: &ToolsCapability{ListChanged: false}},
		ServerInfo:      Implementation{Name: s.config.Server.Name, Version: s.config.Server.Version},
		Instructions:    instructions,
	})
}

func (s *Server) handleInitialized(ctx context.Context, _ json.RawMessage) error {
	return s.machine.Fire(ctx, state.EventClientInitialized)
}

func (s *Server) handleExit(ctx context.Context, _ json.RawMessage) error {
	s.logger.Info("Client requested exit.")
	return s.machine.Fire(ctx, state.EventExitNotification)
}

func (s *Server) handlePing(context.Context, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (s *Server) handleToolsList(context.Context, json.RawMessage) (json.RawMessage, error) {
	names := s.validator.Tools()
	defs := make([]ToolDefinition, 0, len(names))
	for _, name := range names {
		def := s.tools[name].def
		if raw, ok := s.validator.Schema(name); ok {
			def.InputSchema = raw
		}
		defs = append(defs, def)
	}
	return marshalResult(ListToolsResult{Tools: defs})
}

// toolCallError carries the tool name of a failed tools/call up to the error path.
type toolCallError struct {
	tool string
	err  error
}

func (e *toolCallError) Error() string { return e.tool + ": " + e.err.Error() }
func (e *toolCallError) Unwrap() error { return e.err }

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var call CallToolParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, mcperror.New(mcperror.CodeInvalidParams, "Invalid params for tools/call: "+err.Error(), mcperror.Context{})
	}
	if call.Name == "" {
		return nil, mcperror.New(mcperror.CodeInvalidParams, "Invalid params for tools/call: name is required", mcperror.Context{})
	}

	t, ok := s.tools[call.Name]
	if !ok {
		return nil, &toolCallError{tool: call.Name, err: mcperror.New(mcperror.CodeMethodNotFound,
			"Unknown tool: "+call.Name, mcperror.Context{Tool: call.Name})}
	}

	start := time.Now()
	out, err := s.callTool(ctx, t, call.Arguments)
	s.metrics.RecordToolCall(call.Name, time.Since(start))
	if err != nil {
		return nil, &toolCallError{tool: call.Name, err: err}
	}

	text, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, &toolCallError{tool: call.Name, err: errors.Wrapf(err, "failed to marshal result of tool %s", call.Name)}
	}
	s.logger.Debug("Tool call succeeded.", "tool", call.Name, "elapsed", time.Since(start))
	return marshalResult(CallToolResult{Content: []TextContent{{Type: "text", Text: string(text)}}})
}

// callTool validates args against the tool's schema and then runs the wrapped body.
func (s *Server) callTool(ctx context.Context, t tool, args json.RawMessage) (any, error) {
	if err := s.validator.Validate(t.def.Name, args); err != nil {
		var failure *mcperror.ValidationFailure
		if errors.As(err, &failure) {
			return nil, mcperror.Normalize(failure, mcperror.Context{Tool: t.def.Name})
		}
		return nil, mcperror.New(mcperror.CodeInvalidParams, "Invalid tool arguments: "+err.Error(),
			mcperror.Context{Tool: t.def.Name})
	}
	return t.call(ctx, args)
}

func marshalResult(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal result")
	}
	return b, nil
}
