package app

import (
	"fmt"
	"time"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// PayloadKind names the entity types the validator understands. Invoices,
// quotes, and credit notes share one structural schema; payments have
// their own.
type PayloadKind string

const (
	KindInvoice    PayloadKind = "invoice"
	KindQuote      PayloadKind = "quote"
	KindCreditNote PayloadKind = "credit_note"
	KindPayment    PayloadKind = "payment"
)

// DocTypeForKind maps a payload kind to its document variant. Payments are
// not lifecycle documents and have no mapping.
func DocTypeForKind(kind PayloadKind) (domain.DocumentType, bool) {
	switch kind {
	case KindInvoice:
		return domain.DocTypeInvoice, true
	case KindQuote:
		return domain.DocTypeQuote, true
	case KindCreditNote:
		return domain.DocTypeCreditNote, true
	}
	return "", false
}

// DocumentResolver looks up a document referenced by a payment payload.
// The service backs this with the repository; tests use a map.
type DocumentResolver func(documentID string) (domain.Document, bool)

// contextualChecker is the shared contextual-check contract implemented by
// every payload variant. Each method returns its findings plus the number
// of checks it attempted, which feeds the score denominator.
type contextualChecker interface {
	checkAccountRefs(tc domain.TenantContext) ([]domain.DiffEntry, int)
	checkTaxRefs(tc domain.TenantContext) ([]domain.DiffEntry, int)
	checkContactRefs(tc domain.TenantContext) ([]domain.DiffEntry, int)
}

// documentRefChecker is implemented by payloads that reference another
// document (payments). Checked in addition to the three shared families.
type documentRefChecker interface {
	checkDocumentRef(resolve DocumentResolver) ([]domain.DiffEntry, int)
}

// --- Structural field helpers ---

// rawMap accumulates structural findings while fields are pulled out of
// the dynamic payload.
type rawMap struct {
	entries []domain.DiffEntry
}

func (m *rawMap) fail(path, issue, expected, received string) {
	m.entries = append(m.entries, domain.DiffEntry{
		FieldPath: path,
		Issue:     issue,
		Expected:  expected,
		Received:  received,
		Severity:  domain.SeverityError,
	})
}

func (m *rawMap) requiredString(path string, values map[string]any, key string) string {
	v, ok := values[key]
	if !ok || v == nil {
		m.fail(path, "required field is missing", "string", "")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		m.fail(path, "field must be a string", "string", fmt.Sprintf("%T", v))
		return ""
	}
	if s == "" {
		m.fail(path, "field must not be empty", "non-empty string", `""`)
		return ""
	}
	return s
}

func (m *rawMap) optionalString(path string, values map[string]any, key string) string {
	v, ok := values[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		m.fail(path, "field must be a string", "string", fmt.Sprintf("%T", v))
		return ""
	}
	return s
}

func (m *rawMap) requiredNumber(path string, values map[string]any, key string) (float64, bool) {
	v, ok := values[key]
	if !ok || v == nil {
		m.fail(path, "required field is missing", "number", "")
		return 0, false
	}
	n, ok := asNumber(v)
	if !ok {
		m.fail(path, "field must be a number", "number", fmt.Sprintf("%T", v))
		return 0, false
	}
	return n, true
}

// asNumber accepts the numeric shapes JSON decoding can produce.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// --- Document payloads (invoice, quote, credit note) ---

// documentPayload is the parsed form of an invoice, quote, or credit note
// candidate. Sales-side variants warn when a line references a non-revenue
// account.
type documentPayload struct {
	docType   domain.DocumentType
	contactID string
	currency  string
	reference string
	lineItems []domain.LineItem
}

func parseDocumentPayload(docType domain.DocumentType, raw map[string]any) (*documentPayload, []domain.DiffEntry) {
	m := &rawMap{}
	p := &documentPayload{docType: docType}

	p.contactID = m.requiredString("contact_id", raw, "contact_id")
	p.currency = m.optionalString("currency", raw, "currency")
	p.reference = m.optionalString("reference", raw, "reference")

	items, ok := raw["line_items"]
	if !ok || items == nil {
		m.fail("line_items", "required field is missing", "non-empty array", "")
		return p, m.entries
	}
	list, ok := items.([]any)
	if !ok {
		m.fail("line_items", "field must be an array", "array", fmt.Sprintf("%T", items))
		return p, m.entries
	}
	if len(list) == 0 {
		m.fail("line_items", "at least one line item is required", "non-empty array", "[]")
		return p, m.entries
	}

	for i, raw := range list {
		path := fmt.Sprintf("line_items[%d]", i)
		item, ok := raw.(map[string]any)
		if !ok {
			m.fail(path, "line item must be an object", "object", fmt.Sprintf("%T", raw))
			continue
		}

		li := domain.LineItem{
			Description: m.requiredString(path+".description", item, "description"),
			AccountCode: m.requiredString(path+".account_code", item, "account_code"),
			TaxType:     m.optionalString(path+".tax_type", item, "tax_type"),
		}
		if qty, ok := m.requiredNumber(path+".quantity", item, "quantity"); ok {
			if qty <= 0 {
				m.fail(path+".quantity", "quantity must be positive", "> 0", fmt.Sprintf("%v", qty))
			}
			li.Quantity = qty
		}
		if amt, ok := m.requiredNumber(path+".unit_amount", item, "unit_amount"); ok {
			if amt < 0 {
				m.fail(path+".unit_amount", "unit amount must not be negative", ">= 0", fmt.Sprintf("%v", amt))
			}
			li.UnitAmount = amt
		}
		p.lineItems = append(p.lineItems, li)
	}

	return p, m.entries
}

// salesDocument reports whether the variant should reference revenue
// accounts on its lines. All three current variants are sales-side.
func (p *documentPayload) salesDocument() bool {
	switch p.docType {
	case domain.DocTypeInvoice, domain.DocTypeQuote, domain.DocTypeCreditNote:
		return true
	}
	return false
}

func (p *documentPayload) checkAccountRefs(tc domain.TenantContext) ([]domain.DiffEntry, int) {
	var entries []domain.DiffEntry
	for i, li := range p.lineItems {
		path := fmt.Sprintf("line_items[%d].account_code", i)
		acct, ok := tc.AccountByCode(li.AccountCode)
		if !ok {
			entries = append(entries, domain.DiffEntry{
				FieldPath: path,
				Issue:     "account code not found in chart of accounts",
				Expected:  "existing account code",
				Received:  li.AccountCode,
				Severity:  domain.SeverityError,
			})
			continue
		}
		if acct.Status == domain.EntityArchived {
			entries = append(entries, domain.DiffEntry{
				FieldPath: path,
				Issue:     "account is archived",
				Expected:  string(domain.EntityActive),
				Received:  string(acct.Status),
				Severity:  domain.SeverityError,
			})
			continue
		}
		if p.salesDocument() && acct.Type != domain.AccountTypeRevenue {
			entries = append(entries, domain.DiffEntry{
				FieldPath: path,
				Issue:     "sales documents usually reference a revenue account",
				Expected:  string(domain.AccountTypeRevenue),
				Received:  string(acct.Type),
				Severity:  domain.SeverityWarning,
			})
		}
	}
	return entries, len(p.lineItems)
}

func (p *documentPayload) checkTaxRefs(tc domain.TenantContext) ([]domain.DiffEntry, int) {
	var entries []domain.DiffEntry
	checks := 0
	for i, li := range p.lineItems {
		if li.TaxType == "" {
			continue
		}
		checks++
		path := fmt.Sprintf("line_items[%d].tax_type", i)
		rate, ok := tc.TaxRateByType(li.TaxType)
		if !ok {
			entries = append(entries, domain.DiffEntry{
				FieldPath: path,
				Issue:     fmt.Sprintf("tax type not available in region %s", tc.Region),
				Expected:  "existing tax type",
				Received:  li.TaxType,
				Severity:  domain.SeverityError,
			})
			continue
		}
		if rate.Status != domain.EntityActive {
			entries = append(entries, domain.DiffEntry{
				FieldPath: path,
				Issue:     "tax rate is not active",
				Expected:  string(domain.EntityActive),
				Received:  string(rate.Status),
				Severity:  domain.SeverityError,
			})
		}
	}
	return entries, checks
}

func (p *documentPayload) checkContactRefs(tc domain.TenantContext) ([]domain.DiffEntry, int) {
	contact, ok := tc.ContactByID(p.contactID)
	if !ok {
		return []domain.DiffEntry{{
			FieldPath: "contact_id",
			Issue:     "contact not found",
			Expected:  "existing contact ID",
			Received:  p.contactID,
			Severity:  domain.SeverityError,
		}}, 1
	}
	if contact.Status == domain.EntityArchived {
		// Archived contacts are usable but flagged.
		return []domain.DiffEntry{{
			FieldPath: "contact_id",
			Issue:     "contact is archived",
			Expected:  string(domain.EntityActive),
			Received:  string(contact.Status),
			Severity:  domain.SeverityWarning,
		}}, 1
	}
	return nil, 1
}

// toDocument builds the domain document once validation has passed.
func (p *documentPayload) toDocument(id, tenantID, defaultCurrency string) domain.Document {
	currency := p.currency
	if currency == "" {
		currency = defaultCurrency
	}
	doc := domain.NewDocument(id, tenantID, p.docType, p.contactID, currency, p.lineItems)
	doc.Reference = p.reference
	return doc
}

// --- Payment payload ---

const paymentDateFormat = "2006-01-02"

// paymentPayload is the parsed form of a payment candidate. It references
// a bank account and a settleable document.
type paymentPayload struct {
	documentID  string
	accountCode string
	amount      float64
	date        time.Time
}

func parsePaymentPayload(raw map[string]any) (*paymentPayload, []domain.DiffEntry) {
	m := &rawMap{}
	p := &paymentPayload{}

	p.documentID = m.requiredString("document_id", raw, "document_id")
	p.accountCode = m.requiredString("account_code", raw, "account_code")

	if amt, ok := m.requiredNumber("amount", raw, "amount"); ok {
		if amt <= 0 {
			m.fail("amount", "amount must be positive", "> 0", fmt.Sprintf("%v", amt))
		}
		p.amount = amt
	}

	if ds := m.optionalString("date", raw, "date"); ds != "" {
		d, err := time.Parse(paymentDateFormat, ds)
		if err != nil {
			m.fail("date", "date must be formatted YYYY-MM-DD", paymentDateFormat, ds)
		}
		p.date = d
	}

	return p, m.entries
}

func (p *paymentPayload) checkAccountRefs(tc domain.TenantContext) ([]domain.DiffEntry, int) {
	acct, ok := tc.AccountByCode(p.accountCode)
	if !ok {
		return []domain.DiffEntry{{
			FieldPath: "account_code",
			Issue:     "account code not found in chart of accounts",
			Expected:  "existing account code",
			Received:  p.accountCode,
			Severity:  domain.SeverityError,
		}}, 1
	}
	if acct.Status == domain.EntityArchived {
		return []domain.DiffEntry{{
			FieldPath: "account_code",
			Issue:     "account is archived",
			Expected:  string(domain.EntityActive),
			Received:  string(acct.Status),
			Severity:  domain.SeverityError,
		}}, 1
	}
	if acct.Type != domain.AccountTypeBank {
		return []domain.DiffEntry{{
			FieldPath: "account_code",
			Issue:     "payments must reference a bank account",
			Expected:  string(domain.AccountTypeBank),
			Received:  string(acct.Type),
			Severity:  domain.SeverityError,
		}}, 1
	}
	return nil, 1
}

func (p *paymentPayload) checkTaxRefs(domain.TenantContext) ([]domain.DiffEntry, int) {
	return nil, 0
}

func (p *paymentPayload) checkContactRefs(domain.TenantContext) ([]domain.DiffEntry, int) {
	return nil, 0
}

func (p *paymentPayload) checkDocumentRef(resolve DocumentResolver) ([]domain.DiffEntry, int) {
	var doc domain.Document
	found := false
	if resolve != nil {
		doc, found = resolve(p.documentID)
	}
	if !found {
		return []domain.DiffEntry{{
			FieldPath: "document_id",
			Issue:     "document not found",
			Expected:  "existing invoice or credit note ID",
			Received:  p.documentID,
			Severity:  domain.SeverityError,
		}}, 1
	}

	if doc.Type == domain.DocTypeQuote {
		return []domain.DiffEntry{{
			FieldPath: "document_id",
			Issue:     "payments apply to invoices and credit notes, not quotes",
			Expected:  "INVOICE or CREDIT_NOTE",
			Received:  string(doc.Type),
			Severity:  domain.SeverityError,
		}}, 1
	}

	switch doc.Status {
	case domain.StatusPaid, domain.StatusVoided:
		return []domain.DiffEntry{{
			FieldPath: "document_id",
			Issue:     "document is already settled",
			Expected:  string(domain.StatusAuthorised),
			Received:  string(doc.Status),
			Severity:  domain.SeverityWarning,
		}}, 1
	case domain.StatusDraft, domain.StatusSubmitted:
		return []domain.DiffEntry{{
			FieldPath: "document_id",
			Issue:     "document is not yet authorised for payment",
			Expected:  string(domain.StatusAuthorised),
			Received:  string(doc.Status),
			Severity:  domain.SeverityError,
		}}, 1
	}
	return nil, 1
}
