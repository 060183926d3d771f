package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/ledgerlab/internal/app"
	"github.com/neomorfeo/ledgerlab/internal/domain"
)

// --- API representations ---

// LineItemResponse is the API representation of one document line.
type LineItemResponse struct {
	Description string  `json:"description" doc:"Line description"`
	Quantity    float64 `json:"quantity" doc:"Quantity billed"`
	UnitAmount  float64 `json:"unit_amount" doc:"Price per unit"`
	AccountCode string  `json:"account_code" doc:"Chart-of-accounts code"`
	TaxType     string  `json:"tax_type,omitempty" doc:"Tax type applied to the line"`
}

// DocumentResponse is the API representation of a business document.
type DocumentResponse struct {
	ID        string             `json:"id" doc:"Unique identifier"`
	Type      string             `json:"type" doc:"Document variant"`
	Status    string             `json:"status" doc:"Lifecycle state"`
	ContactID string             `json:"contact_id" doc:"Referenced contact"`
	Currency  string             `json:"currency" doc:"Document currency"`
	Total     float64            `json:"total" doc:"Sum of line amounts"`
	Reference string             `json:"reference,omitempty" doc:"Free-form reference"`
	LineItems []LineItemResponse `json:"line_items,omitempty" doc:"Document lines"`
	CreatedAt string             `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt string             `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toDocumentResponse(d domain.Document) DocumentResponse {
	items := make([]LineItemResponse, len(d.LineItems))
	for i, li := range d.LineItems {
		items[i] = LineItemResponse{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitAmount:  li.UnitAmount,
			AccountCode: li.AccountCode,
			TaxType:     li.TaxType,
		}
	}
	return DocumentResponse{
		ID:        d.ID,
		Type:      string(d.Type),
		Status:    string(d.Status),
		ContactID: d.ContactID,
		Currency:  d.Currency,
		Total:     d.Total,
		Reference: d.Reference,
		LineItems: items,
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// DiffEntryResponse is one structured validation finding.
type DiffEntryResponse struct {
	FieldPath string `json:"field_path" doc:"Offending field"`
	Issue     string `json:"issue" doc:"What is wrong"`
	Expected  string `json:"expected,omitempty" doc:"What was expected"`
	Received  string `json:"received,omitempty" doc:"What was received"`
	Severity  string `json:"severity" doc:"error, warning, or info"`
}

// RecoveryHintResponse suggests the next inspection action.
type RecoveryHintResponse struct {
	Action  string            `json:"action" doc:"Suggested follow-up operation"`
	Filters map[string]string `json:"filters,omitempty" doc:"Pre-filled filter arguments"`
}

// ValidationResponse is the outcome of a validation call.
type ValidationResponse struct {
	Valid    bool                  `json:"valid" doc:"True when no errors were found"`
	Score    float64               `json:"score" doc:"1 minus the fraction of failed checks"`
	Errors   []string              `json:"errors,omitempty" doc:"Error findings"`
	Warnings []string              `json:"warnings,omitempty" doc:"Warning findings"`
	Diff     []DiffEntryResponse   `json:"diff,omitempty" doc:"Structured findings"`
	Hint     *RecoveryHintResponse `json:"hint,omitempty" doc:"Suggested recovery action"`
}

func toValidationResponse(r domain.ValidationResult) ValidationResponse {
	resp := ValidationResponse{
		Valid:    r.Valid,
		Score:    r.Score,
		Errors:   r.Errors,
		Warnings: r.Warnings,
	}
	for _, e := range r.Diff {
		resp.Diff = append(resp.Diff, DiffEntryResponse{
			FieldPath: e.FieldPath,
			Issue:     e.Issue,
			Expected:  e.Expected,
			Received:  e.Received,
			Severity:  string(e.Severity),
		})
	}
	if r.Hint != nil {
		resp.Hint = &RecoveryHintResponse{Action: r.Hint.Action, Filters: r.Hint.Filters}
	}
	return resp
}

// SimulationStateResponse is the API representation of an active fault condition.
type SimulationStateResponse struct {
	Condition    string  `json:"condition" doc:"Injected fault condition"`
	FailureRate  float64 `json:"failure_rate" doc:"Probability of failure per check"`
	ActivatedAt  string  `json:"activated_at" doc:"Activation timestamp (ISO 8601)"`
	ExpiresAt    string  `json:"expires_at" doc:"Expiry timestamp (ISO 8601)"`
	RequestCount int64   `json:"request_count" doc:"Checks performed while active"`
}

func toSimulationStateResponse(s *domain.SimulationState) *SimulationStateResponse {
	if s == nil {
		return nil
	}
	return &SimulationStateResponse{
		Condition:    string(s.Condition),
		FailureRate:  s.FailureRate,
		ActivatedAt:  s.ActivatedAt.Format("2006-01-02T15:04:05Z"),
		ExpiresAt:    s.ExpiresAt.Format("2006-01-02T15:04:05Z"),
		RequestCount: s.RequestCount,
	}
}

// --- Validate ---

type ValidateInput struct {
	TenantID string `path:"tenantID" doc:"Tenant ID"`
	Body     struct {
		Type    string         `json:"type" enum:"invoice,quote,credit_note,payment" doc:"Entity type to validate as"`
		Payload map[string]any `json:"payload" doc:"Candidate entity payload"`
	}
}

type ValidateOutput struct {
	Body ValidationResponse
}

// --- Create document ---

type CreateDocumentInput struct {
	TenantID       string `path:"tenantID" doc:"Tenant ID"`
	IdempotencyKey string `header:"Idempotency-Key" required:"false" doc:"Caller token for safe retries"`
	Body           struct {
		Type    string         `json:"type" enum:"invoice,quote,credit_note" doc:"Document variant to create"`
		Payload map[string]any `json:"payload" doc:"Document payload"`
	}
}

type CreateDocumentOutput struct {
	Body struct {
		Document DocumentResponse `json:"document"`
		Replayed bool             `json:"replayed" doc:"True when served from the idempotency store"`
	}
}

// --- Get / list documents ---

type GetDocumentInput struct {
	TenantID   string `path:"tenantID" doc:"Tenant ID"`
	DocumentID string `path:"documentID" doc:"Document ID"`
}

type GetDocumentOutput struct {
	Body DocumentResponse
}

type ListDocumentsInput struct {
	TenantID string `path:"tenantID" doc:"Tenant ID"`
	Type     string `query:"type" required:"false" enum:",INVOICE,QUOTE,CREDIT_NOTE" doc:"Filter by variant"`
	Status   string `query:"status" required:"false" doc:"Filter by lifecycle state"`
	Limit    int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset   int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListDocumentsOutput struct {
	Body []DocumentResponse
}

// --- Payments ---

type ListPaymentsInput struct {
	TenantID   string `path:"tenantID" doc:"Tenant ID"`
	DocumentID string `path:"documentID" doc:"Document ID"`
}

type PaymentResponse struct {
	ID          string  `json:"id" doc:"Unique identifier"`
	DocumentID  string  `json:"document_id" doc:"Settled document"`
	AccountCode string  `json:"account_code" doc:"Bank account used"`
	Amount      float64 `json:"amount" doc:"Amount paid"`
	Date        string  `json:"date" doc:"Payment date (ISO 8601)"`
	Reference   string  `json:"reference,omitempty" doc:"Free-form reference"`
}

type ListPaymentsOutput struct {
	Body []PaymentResponse
}

// --- Transition ---

type TransitionInput struct {
	TenantID   string `path:"tenantID" doc:"Tenant ID"`
	DocumentID string `path:"documentID" doc:"Document ID"`
	Body       struct {
		Type    string `json:"type" enum:"INVOICE,QUOTE,CREDIT_NOTE" doc:"Document variant"`
		Target  string `json:"target" doc:"Target lifecycle state"`
		Payment *struct {
			Amount      float64 `json:"amount" doc:"Payment amount"`
			AccountCode string  `json:"account_code" doc:"Bank account code"`
			Date        string  `json:"date,omitempty" doc:"Payment date (YYYY-MM-DD)"`
		} `json:"payment,omitempty" doc:"Required when targeting PAID"`
	}
}

type TransitionOutput struct {
	Body struct {
		DocumentID  string   `json:"document_id"`
		Type        string   `json:"type"`
		Path        []string `json:"path" doc:"States traversed, including the start"`
		FinalStatus string   `json:"final_status"`
		PaymentID   string   `json:"payment_id,omitempty" doc:"Payment created when entering PAID"`
		InvoiceID   string   `json:"invoice_id,omitempty" doc:"Invoice created by quote conversion"`
	}
}

// --- Simulation ---

type SimulateInput struct {
	TenantID string `path:"tenantID" doc:"Tenant ID"`
	Body     struct {
		Condition       string  `json:"condition" enum:"RATE_LIMIT,TIMEOUT,SERVER_ERROR,TOKEN_EXPIRED,INTERMITTENT" doc:"Fault condition"`
		DurationSeconds int     `json:"duration_seconds" minimum:"0" doc:"Lifetime in seconds; 0 clears the active condition"`
		FailureRate     float64 `json:"failure_rate,omitempty" minimum:"0" maximum:"1" doc:"Failure probability for INTERMITTENT"`
	}
}

type SimulateOutput struct {
	Body struct {
		Active   *SimulationStateResponse `json:"active_simulation,omitempty"`
		Previous *SimulationStateResponse `json:"previous_simulation,omitempty"`
	}
}

type GetSimulationInput struct {
	TenantID string `path:"tenantID" doc:"Tenant ID"`
}

type GetSimulationOutput struct {
	Body struct {
		Active *SimulationStateResponse `json:"active_simulation,omitempty"`
	}
}

type CheckFaultInput struct {
	TenantID string `path:"tenantID" doc:"Tenant ID"`
}

type CheckFaultOutput struct {
	Body struct {
		ShouldFail bool   `json:"should_fail"`
		Condition  string `json:"condition,omitempty"`
		StatusCode int    `json:"status_code,omitempty"`
	}
}

// --- Tenant configuration listings (recovery-hint targets) ---

type ListAccountsInput struct {
	TenantID string `path:"tenantID" doc:"Tenant ID"`
	Status   string `query:"status" required:"false" doc:"Filter by ACTIVE or ARCHIVED"`
	Type     string `query:"type" required:"false" doc:"Filter by account class"`
}

type AccountResponse struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	TaxType string `json:"tax_type,omitempty"`
}

type ListAccountsOutput struct {
	Body []AccountResponse
}

type ListTaxRatesInput struct {
	TenantID string `path:"tenantID" doc:"Tenant ID"`
	Status   string `query:"status" required:"false" doc:"Filter by ACTIVE or ARCHIVED"`
}

type TaxRateResponse struct {
	TaxType string  `json:"tax_type"`
	Name    string  `json:"name"`
	Rate    float64 `json:"rate"`
	Status  string  `json:"status"`
}

type ListTaxRatesOutput struct {
	Body []TaxRateResponse
}

type ListContactsInput struct {
	TenantID string `path:"tenantID" doc:"Tenant ID"`
	Status   string `query:"status" required:"false" doc:"Filter by ACTIVE or ARCHIVED"`
}

type ContactResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	IsCustomer bool   `json:"is_customer"`
	IsSupplier bool   `json:"is_supplier"`
}

type ListContactsOutput struct {
	Body []ContactResponse
}

// Register adds all sandbox API routes to the Huma API.
func Register(api huma.API, svc *app.SandboxService) {
	huma.Register(api, huma.Operation{
		OperationID: "validate-payload",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{tenantID}/validate",
		Summary:     "Validate a candidate payload against the tenant configuration",
		Tags:        []string{"Validation"},
	}, func(ctx context.Context, input *ValidateInput) (*ValidateOutput, error) {
		result, err := svc.Validate(ctx, input.TenantID, app.PayloadKind(input.Body.Type), input.Body.Payload)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ValidateOutput{Body: toValidationResponse(result)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-document",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{tenantID}/documents",
		Summary:     "Create a draft document (idempotent via Idempotency-Key)",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *CreateDocumentInput) (*CreateDocumentOutput, error) {
		doc, replayed, err := svc.CreateDocument(ctx, input.TenantID, app.PayloadKind(input.Body.Type), input.IdempotencyKey, input.Body.Payload)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &CreateDocumentOutput{}
		out.Body.Document = toDocumentResponse(doc)
		out.Body.Replayed = replayed
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{tenantID}/documents/{documentID}",
		Summary:     "Get a document by ID",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *GetDocumentInput) (*GetDocumentOutput, error) {
		doc, err := svc.GetDocument(ctx, input.TenantID, input.DocumentID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetDocumentOutput{Body: toDocumentResponse(doc)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{tenantID}/documents",
		Summary:     "List documents",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *ListDocumentsInput) (*ListDocumentsOutput, error) {
		filter := domain.DocumentFilter{Limit: input.Limit, Offset: input.Offset}
		if input.Type != "" {
			t := domain.DocumentType(input.Type)
			filter.Type = &t
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		docs, err := svc.ListDocuments(ctx, input.TenantID, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]DocumentResponse, len(docs))
		for i, d := range docs {
			resp[i] = toDocumentResponse(d)
		}
		return &ListDocumentsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-payments",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{tenantID}/documents/{documentID}/payments",
		Summary:     "List payments recorded against a document",
		Tags:        []string{"Documents"},
	}, func(ctx context.Context, input *ListPaymentsInput) (*ListPaymentsOutput, error) {
		payments, err := svc.ListPayments(ctx, input.TenantID, input.DocumentID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]PaymentResponse, len(payments))
		for i, p := range payments {
			resp[i] = PaymentResponse{
				ID:          p.ID,
				DocumentID:  p.DocumentID,
				AccountCode: p.AccountCode,
				Amount:      p.Amount,
				Date:        p.Date.Format("2006-01-02T15:04:05Z"),
				Reference:   p.Reference,
			}
		}
		return &ListPaymentsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-document",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{tenantID}/documents/{documentID}/transitions",
		Summary:     "Drive a document to a target lifecycle state",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
		var payment *domain.PaymentDetails
		if input.Body.Payment != nil {
			payment = &domain.PaymentDetails{
				Amount:      input.Body.Payment.Amount,
				AccountCode: input.Body.Payment.AccountCode,
			}
			if input.Body.Payment.Date != "" {
				d, err := time.Parse("2006-01-02", input.Body.Payment.Date)
				if err != nil {
					return nil, huma.Error422UnprocessableEntity("payment date must be formatted YYYY-MM-DD")
				}
				payment.Date = d
			}
		}

		result, err := svc.Transition(ctx, input.TenantID, domain.DocumentType(input.Body.Type), input.DocumentID, domain.Status(input.Body.Target), payment)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &TransitionOutput{}
		out.Body.DocumentID = result.DocumentID
		out.Body.Type = string(result.DocumentType)
		out.Body.FinalStatus = string(result.FinalStatus)
		out.Body.PaymentID = result.PaymentID
		out.Body.InvoiceID = result.InvoiceID
		out.Body.Path = make([]string, len(result.Path))
		for i, s := range result.Path {
			out.Body.Path[i] = string(s)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "simulate-fault",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{tenantID}/simulation",
		Summary:     "Activate, replace, or clear a fault condition",
		Tags:        []string{"Chaos"},
	}, func(ctx context.Context, input *SimulateInput) (*SimulateOutput, error) {
		status, err := svc.Simulate(ctx, input.TenantID, domain.ChaosCondition(input.Body.Condition), input.Body.DurationSeconds, input.Body.FailureRate)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &SimulateOutput{}
		out.Body.Active = toSimulationStateResponse(status.Active)
		out.Body.Previous = toSimulationStateResponse(status.Previous)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-simulation",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{tenantID}/simulation",
		Summary:     "Get the active fault condition, if any",
		Tags:        []string{"Chaos"},
	}, func(_ context.Context, input *GetSimulationInput) (*GetSimulationOutput, error) {
		out := &GetSimulationOutput{}
		if state, ok := svc.SimulationStatus(input.TenantID); ok {
			out.Body.Active = toSimulationStateResponse(&state)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-fault",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{tenantID}/simulation/check",
		Summary:     "Consult the chaos simulator (counts as a request)",
		Tags:        []string{"Chaos"},
	}, func(_ context.Context, input *CheckFaultInput) (*CheckFaultOutput, error) {
		decision := svc.CheckFault(input.TenantID)
		out := &CheckFaultOutput{}
		out.Body.ShouldFail = decision.ShouldFail
		out.Body.Condition = string(decision.Condition)
		out.Body.StatusCode = decision.StatusCode
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-accounts",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{tenantID}/accounts",
		Summary:     "List the tenant's chart of accounts",
		Tags:        []string{"Configuration"},
	}, func(ctx context.Context, input *ListAccountsInput) (*ListAccountsOutput, error) {
		tc, err := svc.GetTenantContext(ctx, input.TenantID)
		if err != nil {
			return nil, toHumaError(err)
		}

		var resp []AccountResponse
		for _, a := range tc.Accounts {
			if input.Status != "" && string(a.Status) != input.Status {
				continue
			}
			if input.Type != "" && string(a.Type) != input.Type {
				continue
			}
			resp = append(resp, AccountResponse{
				Code:    a.Code,
				Name:    a.Name,
				Type:    string(a.Type),
				Status:  string(a.Status),
				TaxType: a.TaxType,
			})
		}
		return &ListAccountsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tax-rates",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{tenantID}/tax-rates",
		Summary:     "List the tenant's tax rates",
		Tags:        []string{"Configuration"},
	}, func(ctx context.Context, input *ListTaxRatesInput) (*ListTaxRatesOutput, error) {
		tc, err := svc.GetTenantContext(ctx, input.TenantID)
		if err != nil {
			return nil, toHumaError(err)
		}

		var resp []TaxRateResponse
		for _, r := range tc.TaxRates {
			if input.Status != "" && string(r.Status) != input.Status {
				continue
			}
			resp = append(resp, TaxRateResponse{
				TaxType: r.TaxType,
				Name:    r.Name,
				Rate:    r.Rate,
				Status:  string(r.Status),
			})
		}
		return &ListTaxRatesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contacts",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{tenantID}/contacts",
		Summary:     "List the tenant's contacts",
		Tags:        []string{"Configuration"},
	}, func(ctx context.Context, input *ListContactsInput) (*ListContactsOutput, error) {
		tc, err := svc.GetTenantContext(ctx, input.TenantID)
		if err != nil {
			return nil, toHumaError(err)
		}

		var resp []ContactResponse
		for _, c := range tc.Contacts {
			if input.Status != "" && string(c.Status) != input.Status {
				continue
			}
			resp = append(resp, ContactResponse{
				ID:         c.ID,
				Name:       c.Name,
				Status:     string(c.Status),
				IsCustomer: c.IsCustomer,
				IsSupplier: c.IsSupplier,
			})
		}
		return &ListContactsOutput{Body: resp}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors. Simulated
// faults keep the status code the chaos condition dictates.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrTenantNotFound) {
		return huma.Error404NotFound("tenant not found")
	}

	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return huma.Error404NotFound(notFound.Error())
	}

	var fault *domain.SimulatedFaultError
	if errors.As(err, &fault) {
		return huma.NewError(fault.StatusCode, fault.Error())
	}

	var rejected *domain.ValidationRejectedError
	if errors.As(err, &rejected) {
		details := make([]error, 0, len(rejected.Result.Diff))
		for _, e := range rejected.Result.Diff {
			if e.Severity != domain.SeverityError {
				continue
			}
			details = append(details, &huma.ErrorDetail{
				Message:  e.Issue,
				Location: "body.payload." + e.FieldPath,
			})
		}
		return huma.Error422UnprocessableEntity(rejected.Error(), details...)
	}

	var partial *domain.PartialTransitionError
	if errors.As(err, &partial) {
		return huma.Error409Conflict(partial.Error())
	}

	var unknownState *domain.UnknownStateError
	var illegal *domain.IllegalTransitionError
	var payment *domain.PaymentRequiredError
	var condition *domain.UnknownConditionError
	if errors.As(err, &unknownState) || errors.As(err, &illegal) ||
		errors.As(err, &payment) || errors.As(err, &condition) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
