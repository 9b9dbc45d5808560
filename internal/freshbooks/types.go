// file: internal/freshbooks/types.go
package freshbooks

// TimeEntry is a FreshBooks time-tracking entry. Duration is in seconds.
type TimeEntry struct {
	ID         int64  `json:"id,omitempty"`
	IsLogged   bool   `json:"is_logged"`
	StartedAt  string `json:"started_at"`
	Duration   int    `json:"duration"`
	Note       string `json:"note,omitempty"`
	ClientID   int64  `json:"client_id,omitempty"`
	ProjectID  int64  `json:"project_id,omitempty"`
	ServiceID  int64  `json:"service_id,omitempty"`
	IdentityID int64  `json:"identity_id,omitempty"`
	Billable   bool   `json:"billable"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// ListMeta is the pagination block of list responses.
type ListMeta struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// TimeEntryList is one page of time entries.
type TimeEntryList struct {
	TimeEntries []TimeEntry `json:"time_entries"`
	Meta        ListMeta    `json:"meta"`
}

// ListOptions filters and paginates list calls. Zero values are omitted.
type ListOptions struct {
	Page      int
	PerPage   int
	ClientID  int64
	ProjectID int64
}

// Money is an amount in a currency, as FreshBooks encodes it.
type Money struct {
	Amount string `json:"amount"`
	Code   string `json:"code"`
}

// Invoice is a FreshBooks accounting invoice.
type Invoice struct {
	ID            int64  `json:"id"`
	InvoiceID     int64  `json:"invoiceid"`
	InvoiceNumber string `json:"invoice_number"`
	CustomerID    int64  `json:"customerid"`
	Organization  string `json:"organization,omitempty"`
	Status        string `json:"v3_status"`
	Amount        Money  `json:"amount"`
	Outstanding   Money  `json:"outstanding"`
	CreateDate    string `json:"create_date"`
	DueDate       string `json:"due_date"`
	CurrencyCode  string `json:"currency_code"`
}
