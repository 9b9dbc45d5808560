// file: internal/mcp/tools_freshbooks.go
package mcp

import (
	"context"
	"encoding/json"

	"github.com/dkoosis/freshbooks-mcp/internal/freshbooks"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

// FreshBooksAPI is the subset of the FreshBooks client the tools call.
type FreshBooksAPI interface {
	GetTimeEntry(ctx context.Context, businessID, entryID int64) (*freshbooks.TimeEntry, error)
	ListTimeEntries(ctx context.Context, businessID int64, opts freshbooks.ListOptions) (*freshbooks.TimeEntryList, error)
	CreateTimeEntry(ctx context.Context, businessID int64, entry freshbooks.TimeEntry) (*freshbooks.TimeEntry, error)
	GetInvoice(ctx context.Context, accountID string, invoiceID int64) (*freshbooks.Invoice, error)
}

var _ FreshBooksAPI = (*freshbooks.Client)(nil)

// --- Inputs ---.

type timeEntrySingleInput struct {
	BusinessID  int64 `json:"businessId"`
	TimeEntryID int64 `json:"timeEntryId"`
}

type timeEntryListInput struct {
	BusinessID int64 `json:"businessId"`
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	ClientID   int64 `json:"clientId"`
	ProjectID  int64 `json:"projectId"`
}

type timeEntryCreateInput struct {
	BusinessID int64  `json:"businessId"`
	StartedAt  string `json:"startedAt"`
	Duration   int    `json:"duration"`
	Note       string `json:"note"`
	ClientID   int64  `json:"clientId"`
	ProjectID  int64  `json:"projectId"`
	ServiceID  int64  `json:"serviceId"`
	Billable   bool   `json:"billable"`
}

type invoiceSingleInput struct {
	AccountID string `json:"accountId"`
	InvoiceID int64  `json:"invoiceId"`
}

// AccountIdentifier puts the account id into the context of errors from invoice_single.
func (in invoiceSingleInput) AccountIdentifier() string {
	return in.AccountID
}

// --- Schemas ---.

const timeEntrySingleSchema = `{
  "type": "object",
  "properties": {
    "businessId": {"type": "integer", "minimum": 1, "description": "FreshBooks business ID."},
    "timeEntryId": {"type": "integer", "minimum": 1, "description": "Time entry ID."}
  },
  "required": ["businessId", "timeEntryId"],
  "additionalProperties": false
}`

const timeEntryListSchema = `{
  "type": "object",
  "properties": {
    "businessId": {"type": "integer", "minimum": 1, "description": "FreshBooks business ID."},
    "page": {"type": "integer", "minimum": 1},
    "perPage": {"type": "integer", "minimum": 1, "maximum": 100},
    "clientId": {"type": "integer", "minimum": 1},
    "projectId": {"type": "integer", "minimum": 1}
  },
  "required": ["businessId"],
  "additionalProperties": false
}`

const timeEntryCreateSchema = `{
  "type": "object",
  "properties": {
    "businessId": {"type": "integer", "minimum": 1, "description": "FreshBooks business ID."},
    "startedAt": {"type": "string", "minLength": 1, "description": "Start time, ISO 8601 in UTC."},
    "duration": {"type": "integer", "minimum": 1, "description": "Duration in seconds."},
    "note": {"type": "string", "maxLength": 4000},
    "clientId": {"type": "integer", "minimum": 1},
    "projectId": {"type": "integer", "minimum": 1},
    "serviceId": {"type": "integer", "minimum": 1},
    "billable": {"type": "boolean", "description": "Billable entries must name a project."}
  },
  "required": ["businessId", "startedAt", "duration"],
  "additionalProperties": false
}`

const invoiceSingleSchema = `{
  "type": "object",
  "properties": {
    "accountId": {"type": "string", "minLength": 1, "description": "FreshBooks accounting account ID."},
    "invoiceId": {"type": "integer", "minimum": 1, "description": "Invoice ID."}
  },
  "required": ["accountId", "invoiceId"],
  "additionalProperties": false
}`

func (s *Server) registerTools() error {
	registrations := []func() error{
		func() error {
			return addTool(s, ToolDefinition{
				Name:        "timeentry_single",
				Description: "Fetches one FreshBooks time entry by ID.",
				InputSchema: json.RawMessage(timeEntrySingleSchema),
				Annotations: &ToolAnnotations{Title: "Get Time Entry", ReadOnlyHint: true, IdempotentHint: true},
			}, s.timeEntrySingle)
		},
		func() error {
			return addTool(s, ToolDefinition{
				Name:        "timeentry_list",
				Description: "Lists FreshBooks time entries for a business, one page at a time.",
				InputSchema: json.RawMessage(timeEntryListSchema),
				Annotations: &ToolAnnotations{Title: "List Time Entries", ReadOnlyHint: true, IdempotentHint: true},
			}, s.timeEntryList)
		},
		func() error {
			return addTool(s, ToolDefinition{
				Name:        "timeentry_create",
				Description: "Logs a new FreshBooks time entry. Billable entries require a projectId.",
				InputSchema: json.RawMessage(timeEntryCreateSchema),
				Annotations: &ToolAnnotations{Title: "Create Time Entry"},
			}, s.timeEntryCreate)
		},
		func() error {
			return addTool(s, ToolDefinition{
				Name:        "invoice_single",
				Description: "Fetches one FreshBooks invoice by ID.",
				InputSchema: json.RawMessage(invoiceSingleSchema),
				Annotations: &ToolAnnotations{Title: "Get Invoice", ReadOnlyHint: true, IdempotentHint: true},
			}, s.invoiceSingle)
		},
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

// --- Bodies ---.

func (s *Server) timeEntrySingle(ctx context.Context, in timeEntrySingleInput) (*freshbooks.TimeEntry, error) {
	entry, err := s.api.GetTimeEntry(ctx, in.BusinessID, in.TimeEntryID)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.ID == 0 {
		return nil, mcperror.NewNotFoundError("TimeEntry", mcperror.NumericID(in.TimeEntryID), mcperror.Context{})
	}
	return entry, nil
}

func (s *Server) timeEntryList(ctx context.Context, in timeEntryListInput) (*freshbooks.TimeEntryList, error) {
	return s.api.ListTimeEntries(ctx, in.BusinessID, freshbooks.ListOptions{
		Page:      in.Page,
		PerPage:   in.PerPage,
		ClientID:  in.ClientID,
		ProjectID: in.ProjectID,
	})
}

func (s *Server) timeEntryCreate(ctx context.Context, in timeEntryCreateInput) (*freshbooks.TimeEntry, error) {
	if in.Billable && in.ProjectID == 0 {
		return nil, mcperror.NewValidationError(`Billable time entries require a "projectId"`, mcperror.Context{})
	}
	if reqID, ok := mcperror.RequestIDFromContext(ctx); ok {
		s.logger.Info("Creating time entry.", "requestId", reqID, "businessId", in.BusinessID, "billable", in.Billable)
	}
	return s.api.CreateTimeEntry(ctx, in.BusinessID, freshbooks.TimeEntry{
		IsLogged:  true,
		StartedAt: in.StartedAt,
		Duration:  in.Duration,
		Note:      in.Note,
		ClientID:  in.ClientID,
		ProjectID: in.ProjectID,
		ServiceID: in.ServiceID,
		Billable:  in.Billable,
	})
}

func (s *Server) invoiceSingle(ctx context.Context, in invoiceSingleInput) (*freshbooks.Invoice, error) {
	inv, err := s.api.GetInvoice(ctx, in.AccountID, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil || (inv.ID == 0 && inv.InvoiceID == 0) {
		return nil, mcperror.NewNotFoundError("Invoice", mcperror.NumericID(in.InvoiceID), mcperror.Context{})
	}
	return inv, nil
}
