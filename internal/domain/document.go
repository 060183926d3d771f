package domain

import "time"

// DocumentType identifies a lifecycle-managed business document variant.
type DocumentType string

const (
	DocTypeInvoice    DocumentType = "INVOICE"
	DocTypeQuote      DocumentType = "QUOTE"
	DocTypeCreditNote DocumentType = "CREDIT_NOTE"
)

// KnownDocumentType reports whether t is one of the supported variants.
func KnownDocumentType(t DocumentType) bool {
	switch t {
	case DocTypeInvoice, DocTypeQuote, DocTypeCreditNote:
		return true
	}
	return false
}

// Status is a lifecycle state of a business document.
type Status string

// Invoice and credit note states.
const (
	StatusDraft      Status = "DRAFT"
	StatusSubmitted  Status = "SUBMITTED"
	StatusAuthorised Status = "AUTHORISED"
	StatusPaid       Status = "PAID"
	StatusVoided     Status = "VOIDED"
)

// Quote states (quotes share DRAFT with the other variants).
const (
	StatusSent     Status = "SENT"
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
	StatusInvoiced Status = "INVOICED"
)

// LineItem is one billable line on a document.
type LineItem struct {
	Description string
	Quantity    float64
	UnitAmount  float64
	AccountCode string
	TaxType     string
}

// Amount is the line total before tax.
func (li LineItem) Amount() float64 {
	return li.Quantity * li.UnitAmount
}

// Document is a lifecycle-managed business document (invoice, quote, or
// credit note). The lifecycle driver reads Status and requests updates; it
// never holds document state between calls.
type Document struct {
	ID        string
	TenantID  string
	Type      DocumentType
	Status    Status
	ContactID string
	Currency  string
	LineItems []LineItem
	Total     float64
	Reference string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDocument creates a document in the initial DRAFT state with its total
// summed from the line items.
func NewDocument(id, tenantID string, docType DocumentType, contactID, currency string, items []LineItem) Document {
	now := time.Now().UTC()
	return Document{
		ID:        id,
		TenantID:  tenantID,
		Type:      docType,
		Status:    StatusDraft,
		ContactID: contactID,
		Currency:  currency,
		LineItems: items,
		Total:     sumLineItems(items),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// InvoiceFromQuote creates a draft invoice whose line items, currency, and
// contact are copied from the quote. The invoice references the quote it
// was converted from.
func InvoiceFromQuote(id string, quote Document) Document {
	items := make([]LineItem, len(quote.LineItems))
	copy(items, quote.LineItems)

	inv := NewDocument(id, quote.TenantID, DocTypeInvoice, quote.ContactID, quote.Currency, items)
	inv.Reference = quote.ID
	return inv
}

func sumLineItems(items []LineItem) float64 {
	var total float64
	for _, li := range items {
		total += li.Amount()
	}
	return total
}

// Payment settles an invoice or credit note against a bank account.
type Payment struct {
	ID          string
	TenantID    string
	DocumentID  string
	AccountCode string
	Amount      float64
	Date        time.Time
	Reference   string
}

// PaymentDetails carries caller-supplied payment parameters for a
// transition into the PAID state.
type PaymentDetails struct {
	Amount      float64
	AccountCode string
	Date        time.Time
}
