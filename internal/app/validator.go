package app

import (
	"strings"

	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// Validator runs the two-phase payload validation: structural checks
// against the per-kind schema, then contextual checks against the tenant's
// live configuration. It holds no state and is safe for concurrent use.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a candidate payload of the given kind against the
// tenant context. Any structural failure short-circuits with score 0 and
// no contextual findings. Contextual errors degrade the score by the
// fraction of failed checks; warnings never affect validity or score.
// The resolver is only consulted for payloads that reference another
// document and may be nil otherwise.
func (v *Validator) Validate(tc domain.TenantContext, kind PayloadKind, raw map[string]any, resolve DocumentResolver) domain.ValidationResult {
	checker, structural := buildPayload(kind, raw)
	if len(structural) > 0 {
		return domain.ValidationResult{
			Valid:  false,
			Score:  0,
			Errors: issueMessages(structural, domain.SeverityError),
			Diff:   structural,
		}
	}

	var diff []domain.DiffEntry
	totalChecks := 0

	runs := []func() ([]domain.DiffEntry, int){
		func() ([]domain.DiffEntry, int) { return checker.checkAccountRefs(tc) },
		func() ([]domain.DiffEntry, int) { return checker.checkTaxRefs(tc) },
		func() ([]domain.DiffEntry, int) { return checker.checkContactRefs(tc) },
	}
	if refChecker, ok := checker.(documentRefChecker); ok {
		runs = append(runs, func() ([]domain.DiffEntry, int) { return refChecker.checkDocumentRef(resolve) })
	}

	for _, run := range runs {
		entries, checks := run()
		diff = append(diff, entries...)
		totalChecks += checks
	}

	errs := issueMessages(diff, domain.SeverityError)
	warnings := issueMessages(diff, domain.SeverityWarning)

	return domain.ValidationResult{
		Valid:    len(errs) == 0,
		Score:    score(len(errs), totalChecks),
		Errors:   errs,
		Warnings: warnings,
		Diff:     diff,
		Hint:     deriveHint(diff),
	}
}

// buildPayload parses the raw payload into its tagged variant. An unknown
// kind is itself a structural failure.
func buildPayload(kind PayloadKind, raw map[string]any) (contextualChecker, []domain.DiffEntry) {
	switch kind {
	case KindInvoice, KindQuote, KindCreditNote:
		docType, _ := DocTypeForKind(kind)
		return parseDocumentPayload(docType, raw)
	case KindPayment:
		return parsePaymentPayload(raw)
	}
	return noopChecker{}, []domain.DiffEntry{{
		FieldPath: "entity_type",
		Issue:     "unsupported entity type",
		Expected:  "invoice, quote, credit_note, or payment",
		Received:  string(kind),
		Severity:  domain.SeverityError,
	}}
}

type noopChecker struct{}

func (noopChecker) checkAccountRefs(domain.TenantContext) ([]domain.DiffEntry, int) { return nil, 0 }
func (noopChecker) checkTaxRefs(domain.TenantContext) ([]domain.DiffEntry, int)     { return nil, 0 }
func (noopChecker) checkContactRefs(domain.TenantContext) ([]domain.DiffEntry, int) { return nil, 0 }

// score degrades proportionally to the fraction of failed checks rather
// than dropping to zero on the first error.
func score(errorCount, totalChecks int) float64 {
	if totalChecks == 0 {
		if errorCount > 0 {
			return 0
		}
		return 1
	}
	s := 1 - float64(errorCount)/float64(totalChecks)
	if s < 0 {
		return 0
	}
	return s
}

func issueMessages(entries []domain.DiffEntry, severity domain.Severity) []string {
	var out []string
	for _, e := range entries {
		if e.Severity == severity {
			out = append(out, e.FieldPath+": "+e.Issue)
		}
	}
	return out
}

// deriveHint picks one recovery hint for the dominant failure family, by
// first match in fixed precedence: account errors, then tax, then contact.
func deriveHint(diff []domain.DiffEntry) *domain.RecoveryHint {
	families := []struct {
		fieldToken string
		action     string
	}{
		{"account_code", "list-accounts"},
		{"tax_type", "list-tax-rates"},
		{"contact_id", "list-contacts"},
	}

	for _, family := range families {
		for _, e := range diff {
			if e.Severity != domain.SeverityError || !strings.Contains(e.FieldPath, family.fieldToken) {
				continue
			}
			filters := map[string]string{"status": string(domain.EntityActive)}
			// Pre-fill the account class when the failed check named one.
			if family.fieldToken == "account_code" {
				switch e.Expected {
				case string(domain.AccountTypeRevenue), string(domain.AccountTypeBank):
					filters["type"] = e.Expected
				}
			}
			return &domain.RecoveryHint{Action: family.action, Filters: filters}
		}
	}
	return nil
}
