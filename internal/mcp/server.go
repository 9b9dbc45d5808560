// Package mcp implements the MCP server: JSON-RPC framing, the session lifecycle,
// and the FreshBooks tools. Every failure leaves the server as a normalized error.
// file: internal/mcp/server.go
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/freshbooks-mcp/internal/config"
	"github.com/dkoosis/freshbooks-mcp/internal/logging"
	"github.com/dkoosis/freshbooks-mcp/internal/mcp/router"
	"github.com/dkoosis/freshbooks-mcp/internal/mcp/state"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
	"github.com/dkoosis/freshbooks-mcp/internal/metrics"
	"github.com/dkoosis/freshbooks-mcp/internal/schema"
	"github.com/dkoosis/freshbooks-mcp/internal/transport"
)

// Server serves one MCP session.
type Server struct {
	config    *config.Config
	api       FreshBooksAPI
	logger    logging.Logger
	formatter *mcperror.Formatter
	metrics   *metrics.Collector
	validator *schema.Validator
	machine   *state.Machine
	router    *router.Router
	tools     map[string]tool
}

// NewServer builds a server for cfg that calls FreshBooks through api.
// A nil collector gets a private one.
func NewServer(cfg *config.Config, api FreshBooksAPI, collector *metrics.Collector, logger logging.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("mcp server requires a configuration")
	}
	if api == nil {
		return nil, errors.New("mcp server requires a FreshBooks API client")
	}
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	if collector == nil {
		collector = metrics.NewCollector(20)
	}
	log := logger.WithField("component", "mcp_server")

	s := &Server{
		config:    cfg,
		api:       api,
		logger:    log,
		formatter: mcperror.NewFormatter(cfg.Errors.Production),
		metrics:   collector,
		validator: schema.NewValidator(logger),
		machine:   state.NewMachine(logger),
		router:    router.NewRouter(logger),
		tools:     make(map[string]tool),
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	if err := s.registerMethods(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) registerMethods() error {
	routes := []router.Route{
		{Method: "initialize", Handler: s.handleInitialize},
		{Method: "notifications/initialized", NotificationHandler: s.handleInitialized},
		{Method: "ping", Handler: s.handlePing},
		{Method: "tools/list", Handler: s.handleToolsList},
		{Method: "tools/call", Handler: s.handleToolsCall},
		{Method: "exit", NotificationHandler: s.handleExit},
	}
	for _, r := range routes {
		if err := s.router.AddRoute(r); err != nil {
			return errors.Wrapf(err, "failed to register method %s", r.Method)
		}
	}
	return nil
}

// State returns the session lifecycle state.
func (s *Server) State() state.State {
	return s.machine.CurrentState()
}

// HandleMessage processes one raw JSON-RPC message and returns the encoded response,
// or nil when the message was a notification. It never returns an error: every
// failure becomes a JSON-RPC error response.
func (s *Server) HandleMessage(ctx context.Context, raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return s.fail(ctx, nil, "", mcperror.New(mcperror.CodeParseError, "Parse error: message is not valid JSON", mcperror.Context{}))
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return s.fail(ctx, nil, "", mcperror.New(mcperror.CodeInvalidRequest, "Batch requests are not supported", mcperror.Context{}))
	}

	var req request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return s.fail(ctx, extractID(trimmed), "", mcperror.New(mcperror.CodeInvalidRequest,
			"Invalid request: "+err.Error(), mcperror.Context{}))
	}
	if req.JSONRPC != jsonRPCVersion {
		return s.fail(ctx, req.ID, req.Method, mcperror.New(mcperror.CodeInvalidRequest,
			fmt.Sprintf("Invalid request: jsonrpc must be %q", jsonRPCVersion), mcperror.Context{}))
	}
	if req.Method == "" {
		return s.fail(ctx, req.ID, "", mcperror.New(mcperror.CodeInvalidRequest,
			"Invalid request: method is required", mcperror.Context{}))
	}

	if err := s.machine.ValidateMethod(req.Method); err != nil {
		return s.respondError(ctx, &req, req.Method, err)
	}

	result, err := s.router.Route(ctx, req.Method, req.Params, req.isNotification())
	if err != nil {
		label := req.Method
		var failed *toolCallError
		if errors.As(err, &failed) {
			label, err = failed.tool, failed.err
		}
		return s.respondError(ctx, &req, label, err)
	}

	// notifications/initialized and exit move the state in their handlers.
	if req.Method == "initialize" {
		if err := s.machine.FireForMethod(ctx, req.Method); err != nil {
			s.logger.Error("Failed to advance session state.", "method", req.Method, "error", err)
		}
	}

	if req.isNotification() {
		return nil
	}
	out, err := json.Marshal(successResponse{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result})
	if err != nil {
		return s.fail(ctx, req.ID, req.Method, errors.Wrap(err, "failed to marshal response"))
	}
	return out
}

// respondError renders err for req, or only logs it when req is a notification.
func (s *Server) respondError(ctx context.Context, req *request, label string, err error) []byte {
	if req.isNotification() {
		e := mcperror.Normalize(err, mcperror.Context{})
		s.record(label, e)
		return nil
	}
	return s.fail(ctx, req.ID, label, err)
}

// fail normalizes err, logs and counts it, and encodes the error response.
func (s *Server) fail(_ context.Context, id json.RawMessage, label string, err error) []byte {
	e := mcperror.Normalize(err, mcperror.Context{})
	s.record(label, e)

	var responseID any
	if len(id) > 0 {
		responseID = id
	}
	out, marshalErr := json.Marshal(s.formatter.Response(responseID, e))
	if marshalErr != nil {
		s.logger.Error("Failed to marshal error response.", "error", marshalErr, "code", int(e.Code))
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error"}}`)
	}
	return out
}

// record logs e and counts it against label. The debug record carries the agent-facing
// markdown and the formatter's diagnostic view, which is trimmed in production.
func (s *Server) record(label string, e *mcperror.Error) {
	s.formatter.Log(s.logger, e)
	s.logger.Debug("Error detail.", "code", int(e.Code), "detail", s.formatter.Debug(e), "markdown", s.formatter.Markdown(e))
	if label == "" {
		label = "unknown"
	}
	s.metrics.RecordError(label, e)
}

// extractID returns the id of a message that otherwise failed to decode.
func extractID(raw []byte) json.RawMessage {
	var envelope struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	t := bytes.TrimSpace(envelope.ID)
	if len(t) == 0 || t[0] == '{' || t[0] == '[' {
		return nil
	}
	return envelope.ID
}

// Serve reads newline-delimited messages from r and writes responses to w until the
// input ends, the client sends exit, or ctx is cancelled. Reaching the end of input
// is a clean shutdown.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	t := transport.NewNDJSONTransport(r, w, nil, s.logger)
	defer func() {
		_ = t.Close()
	}()
	s.logger.Info("MCP server processing loop started.")

	for {
		msg, err := t.ReadMessage(ctx)
		if err != nil {
			switch {
			case transport.IsMessageSizeError(err):
				resp := s.fail(ctx, nil, "", mcperror.New(mcperror.CodeInvalidRequest, "Invalid request: message too large", mcperror.Context{}))
				if werr := t.WriteMessage(ctx, resp); werr != nil {
					return s.transportFailed(ctx, werr)
				}
				continue
			case transport.IsClosedError(err):
				s.logger.Info("Client closed the connection.")
				_ = s.machine.Fire(ctx, state.EventTransportError)
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				return s.transportFailed(ctx, err)
			}
		}

		if resp := s.HandleMessage(ctx, msg); resp != nil {
			if err := t.WriteMessage(ctx, resp); err != nil {
				return s.transportFailed(ctx, err)
			}
		}
		if state.IsTerminal(s.machine.CurrentState()) {
			s.logger.Info("Session ended.")
			return nil
		}
	}
}

func (s *Server) transportFailed(ctx context.Context, err error) error {
	_ = s.machine.Fire(ctx, state.EventTransportError)
	s.logger.Error("Transport failed, stopping server.", "error", err)
	return errors.Wrap(err, "mcp transport failed")
}
