// file: internal/schema/validator_test.go
package schema

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

const timeEntrySchema = `{
  "type": "object",
  "properties": {
    "accountId": {"type": "string", "minLength": 1},
    "businessId": {"type": "integer"},
    "hours": {"type": "number", "minimum": 0},
    "note": {"type": "string"}
  },
  "required": ["accountId", "businessId"],
  "additionalProperties": false
}`

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v := NewValidator(nil)
	require.NoError(t, v.Register("timeentry_create", []byte(timeEntrySchema)), "Schema should compile.")
	return v
}

func validationFailure(t *testing.T, err error) *mcperror.ValidationFailure {
	t.Helper()
	require.Error(t, err)
	var failure *mcperror.ValidationFailure
	require.True(t, errors.As(err, &failure), "Expected a ValidationFailure, got %T: %v.", err, err)
	return failure
}

func TestValidate_ValidArgs_Succeeds(t *testing.T) {
	v := newTestValidator(t)
	err := v.Validate("timeentry_create", json.RawMessage(`{"accountId":"ABC123","businessId":42,"hours":1.5}`))
	assert.NoError(t, err)
}

func TestValidate_MissingProperties_OneIssueEach(t *testing.T) {
	v := newTestValidator(t)
	failure := validationFailure(t, v.Validate("timeentry_create", nil))

	require.Len(t, failure.Issues, 2)
	assert.Equal(t, "accountId", failure.Issues[0].Path)
	assert.Equal(t, "businessId", failure.Issues[1].Path)
	for _, issue := range failure.Issues {
		assert.Equal(t, "required", issue.Code)
		assert.Equal(t, "is required", issue.Message)
	}
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	v := newTestValidator(t)
	args := json.RawMessage(`{"accountId":"ABC123","businessId":"forty-two","hours":-1}`)
	failure := validationFailure(t, v.Validate("timeentry_create", args))

	require.Len(t, failure.Issues, 2, "Issues: %+v", failure.Issues)
	assert.Equal(t, "businessId", failure.Issues[0].Path)
	assert.Equal(t, "type", failure.Issues[0].Code)
	assert.Equal(t, "integer", failure.Issues[0].Expected)
	assert.Equal(t, "string", failure.Issues[0].Received)

	assert.Equal(t, "hours", failure.Issues[1].Path)
	assert.Equal(t, "minimum", failure.Issues[1].Code)
}

func TestValidate_NormalizesToValidationError(t *testing.T) {
	v := newTestValidator(t)
	err := v.Validate("timeentry_create", json.RawMessage(`{"businessId":1}`))

	e := mcperror.Normalize(err, mcperror.Context{Tool: "timeentry_create"})
	assert.Equal(t, mcperror.CodeValidationError, e.Code)
	require.Len(t, e.Data.ValidationErrors, 1)
	assert.Equal(t, "accountId", e.Data.ValidationErrors[0].Path)
}

func TestValidate_UnknownTool_Fails(t *testing.T) {
	v := newTestValidator(t)
	err := v.Validate("nope", json.RawMessage(`{}`))
	assert.True(t, errors.Is(err, ErrUnknownTool))
}

func TestRegister_RejectsBadNamesAndSchemas(t *testing.T) {
	v := NewValidator(nil)
	assert.Error(t, v.Register("Bad-Name", []byte(`{}`)))
	assert.Error(t, v.Register("broken_schema", []byte(`{"type": 12}`)))
	assert.Error(t, v.Register("not_json", []byte(`{`)))
	assert.Empty(t, v.Tools())
}

func TestRegistry_Accessors(t *testing.T) {
	v := newTestValidator(t)
	require.NoError(t, v.Register("invoice_single", []byte(`{"type":"object"}`)))

	assert.Equal(t, []string{"invoice_single", "timeentry_create"}, v.Tools())
	assert.True(t, v.HasSchema("invoice_single"))
	assert.False(t, v.HasSchema("invoice_list"))
	raw, ok := v.Schema("timeentry_create")
	require.True(t, ok)
	assert.JSONEq(t, timeEntrySchema, string(raw))
	_, ok = v.Schema("invoice_list")
	assert.False(t, ok)
}

func TestRegister_BadNameCarriesNamingHint(t *testing.T) {
	v := NewValidator(nil)
	err := v.Register("Invoice-Single", []byte(`{"type":"object"}`))
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "Rules for tool names:")
	assert.Contains(t, errors.FlattenHints(err), `"timeentry_single"`)
}

func TestPointerToPath(t *testing.T) {
	assert.Equal(t, "", pointerToPath(""))
	assert.Equal(t, "hours", pointerToPath("/hours"))
	assert.Equal(t, "entries.0.note", pointerToPath("/entries/0/note"))
	assert.Equal(t, "a/b", pointerToPath("/a~1b"))
}

func TestCalculatePreview_Truncates(t *testing.T) {
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	preview := calculatePreview(long)
	assert.Len(t, preview, maxPreviewLen+3)
	assert.Equal(t, "a.b", calculatePreview([]byte("a\nb")))
}
