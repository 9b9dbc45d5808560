// Package schema validates tool arguments against per-tool JSON schemas and reports
// every violation as a validation issue.
// file: internal/schema/validator.go
package schema

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dkoosis/freshbooks-mcp/internal/logging"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

// ErrUnknownTool is returned by Validate for a tool that was never registered.
var ErrUnknownTool = errors.New("no schema registered for tool")

type entry struct {
	raw      json.RawMessage
	compiled *jsonschema.Schema
}

// Validator holds one compiled input schema per tool. It is safe for concurrent use.
type Validator struct {
	mu      sync.RWMutex
	schemas map[string]entry
	logger  logging.Logger
}

// NewValidator creates an empty Validator.
func NewValidator(logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Validator{
		schemas: make(map[string]entry),
		logger:  logger.WithField("component", "schema_validator"),
	}
}

// Register compiles schemaDoc (JSON Schema, draft 2020-12) as the input schema of tool.
// Registering the same tool twice replaces the earlier schema.
func (v *Validator) Register(tool string, schemaDoc []byte) error {
	if err := ValidateName(EntityTypeTool, tool); err != nil {
		return errors.WithHint(err, GetNamePatternDescription(EntityTypeTool))
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	resourceID := "mem://tools/" + tool + ".json"
	if err := compiler.AddResource(resourceID, bytes.NewReader(schemaDoc)); err != nil {
		return errors.Wrapf(err, "failed to add input schema for tool %s", tool)
	}
	compileStart := time.Now()
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return errors.Wrapf(err, "failed to compile input schema for tool %s", tool)
	}

	v.mu.Lock()
	v.schemas[tool] = entry{raw: append(json.RawMessage(nil), schemaDoc...), compiled: compiled}
	v.mu.Unlock()

	v.logger.Debug("Tool input schema compiled.", "tool", tool, "duration", time.Since(compileStart))
	return nil
}

// HasSchema reports whether tool has a registered schema.
func (v *Validator) HasSchema(tool string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.schemas[tool]
	return ok
}

// Schema returns the raw schema document registered for tool.
func (v *Validator) Schema(tool string) (json.RawMessage, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.schemas[tool]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), e.raw...), true
}

// Tools returns the registered tool names, sorted.
func (v *Validator) Tools() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.schemas))
	for name := range v.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks args against the input schema of tool. Violations are returned as a
// *mcperror.ValidationFailure listing every issue; other errors mean validation could
// not run at all. Empty args are validated as an empty object.
func (v *Validator) Validate(tool string, args json.RawMessage) error {
	v.mu.RLock()
	e, ok := v.schemas[tool]
	v.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrUnknownTool, "tool %s", tool)
	}

	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	instance, err := decodeInstance(args)
	if err != nil {
		return errors.Wrapf(err, "failed to decode arguments for tool %s", tool)
	}

	err = e.compiled.Validate(instance)
	if err == nil {
		return nil
	}
	var valErr *jsonschema.ValidationError
	if !errors.As(err, &valErr) {
		return errors.Wrapf(err, "schema validation of tool %s failed unexpectedly", tool)
	}

	failure := &mcperror.ValidationFailure{Issues: issuesFrom(valErr)}
	v.logger.Debug("Tool arguments failed schema validation.",
		"tool", tool,
		"issues", len(failure.Issues),
		"argsPreview", calculatePreview(args))
	return failure
}

// decodeInstance decodes a JSON instance the way jsonschema/v5 expects (numbers as
// json.Number), rejecting trailing data after the top-level value.
func decodeInstance(data []byte) (interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var doc interface{}
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, errors.New("invalid character after top-level value")
	}
	return doc, nil
}
