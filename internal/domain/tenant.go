package domain

// EntityStatus is the archival state of a tenant-scoped reference entity
// (account, tax rate, contact).
type EntityStatus string

const (
	EntityActive   EntityStatus = "ACTIVE"
	EntityArchived EntityStatus = "ARCHIVED"
)

// AccountType classifies an account within a tenant's chart of accounts.
type AccountType string

const (
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeBank      AccountType = "BANK"
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
)

// Account is one entry in a tenant's chart of accounts.
type Account struct {
	Code    string
	Name    string
	Type    AccountType
	Status  EntityStatus
	TaxType string
}

// TaxRate is a named tax treatment available to a tenant.
type TaxRate struct {
	TaxType string
	Name    string
	Rate    float64
	Status  EntityStatus
}

// Contact is a customer or supplier within a tenant.
type Contact struct {
	ID         string
	Name       string
	Status     EntityStatus
	IsCustomer bool
	IsSupplier bool
}

// TenantContext is the immutable validation universe for one tenant,
// assembled per call. Account codes, tax types, and contact IDs are
// unique within a tenant.
type TenantContext struct {
	TenantID string
	Name     string
	Region   string
	Currency string
	Accounts []Account
	TaxRates []TaxRate
	Contacts []Contact
}

// AccountByCode returns the account with the given code, if any.
func (tc TenantContext) AccountByCode(code string) (Account, bool) {
	for _, a := range tc.Accounts {
		if a.Code == code {
			return a, true
		}
	}
	return Account{}, false
}

// TaxRateByType returns the tax rate with the given tax type, if any.
func (tc TenantContext) TaxRateByType(taxType string) (TaxRate, bool) {
	for _, r := range tc.TaxRates {
		if r.TaxType == taxType {
			return r, true
		}
	}
	return TaxRate{}, false
}

// ContactByID returns the contact with the given ID, if any.
func (tc TenantContext) ContactByID(id string) (Contact, bool) {
	for _, c := range tc.Contacts {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}
