// file: internal/freshbooks/resources.go
package freshbooks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func timeEntriesPath(businessID int64) string {
	return fmt.Sprintf("/timetracking/business/%d/time_entries", businessID)
}

// GetTimeEntry fetches one time entry.
func (c *Client) GetTimeEntry(ctx context.Context, businessID, entryID int64) (*TimeEntry, error) {
	var out struct {
		TimeEntry TimeEntry `json:"time_entry"`
	}
	path := fmt.Sprintf("%s/%d", timeEntriesPath(businessID), entryID)
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.TimeEntry, nil
}

// ListTimeEntries fetches one page of time entries.
func (c *Client) ListTimeEntries(ctx context.Context, businessID int64, opts ListOptions) (*TimeEntryList, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.ClientID > 0 {
		q.Set("client_id", strconv.FormatInt(opts.ClientID, 10))
	}
	if opts.ProjectID > 0 {
		q.Set("project_id", strconv.FormatInt(opts.ProjectID, 10))
	}
	path := timeEntriesPath(businessID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out TimeEntryList
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTimeEntry creates a time entry and returns it as stored by FreshBooks.
func (c *Client) CreateTimeEntry(ctx context.Context, businessID int64, entry TimeEntry) (*TimeEntry, error) {
	in := struct {
		TimeEntry TimeEntry `json:"time_entry"`
	}{TimeEntry: entry}
	var out struct {
		TimeEntry TimeEntry `json:"time_entry"`
	}
	if err := c.Do(ctx, http.MethodPost, timeEntriesPath(businessID), in, &out); err != nil {
		return nil, err
	}
	return &out.TimeEntry, nil
}

// GetInvoice fetches one invoice from the accounting API.
func (c *Client) GetInvoice(ctx context.Context, accountID string, invoiceID int64) (*Invoice, error) {
	var out struct {
		Response struct {
			Result struct {
				Invoice Invoice `json:"invoice"`
			} `json:"result"`
		} `json:"response"`
	}
	path := fmt.Sprintf("/accounting/account/%s/invoices/invoices/%d", url.PathEscape(accountID), invoiceID)
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Response.Result.Invoice, nil
}
