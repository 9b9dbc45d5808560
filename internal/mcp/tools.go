// file: internal/mcp/tools.go
package mcp

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

type tool struct {
	def  ToolDefinition
	call func(ctx context.Context, args json.RawMessage) (any, error)
}

// addTool registers a typed tool body. The body runs inside mcperror.WrapHandler, so
// every error or panic it produces reaches the caller as a normalized error.
func addTool[In, Out any](s *Server, def ToolDefinition, body mcperror.Handler[In, Out]) error {
	if s.validator.HasSchema(def.Name) {
		return errors.Newf("tool %s already registered", def.Name)
	}
	if err := s.validator.Register(def.Name, def.InputSchema); err != nil {
		return errors.Wrapf(err, "failed to register schema for tool %s", def.Name)
	}

	wrapped := mcperror.WrapHandler(def.Name, body)
	s.tools[def.Name] = tool{
		def: def,
		call: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in In
			if len(bytes.TrimSpace(args)) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, mcperror.New(mcperror.CodeInvalidParams,
						"Invalid tool arguments: "+err.Error(), mcperror.Context{Tool: def.Name})
				}
			}
			return wrapped(ctx, in)
		},
	}
	return nil
}
