package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/ledgerlab/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: SandboxRepository implements domain.Repository.
var _ domain.Repository = (*SandboxRepository)(nil)

// SandboxRepository implements domain.Repository using SQLite.
type SandboxRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*SandboxRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and
// returns a ready repository. Use this when the *sql.DB has been
// pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*SandboxRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &SandboxRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *SandboxRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *SandboxRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

// GetTenantContext assembles the per-tenant validation universe in one
// call: the tenant row plus its accounts, tax rates, and contacts.
func (r *SandboxRepository) GetTenantContext(ctx context.Context, tenantID string) (domain.TenantContext, error) {
	var tc domain.TenantContext

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, region, currency FROM tenants WHERE id = ?`, tenantID,
	).Scan(&tc.TenantID, &tc.Name, &tc.Region, &tc.Currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TenantContext{}, domain.ErrTenantNotFound
		}
		return domain.TenantContext{}, fmt.Errorf("scanning tenant: %w", err)
	}

	if tc.Accounts, err = r.loadAccounts(ctx, tenantID); err != nil {
		return domain.TenantContext{}, err
	}
	if tc.TaxRates, err = r.loadTaxRates(ctx, tenantID); err != nil {
		return domain.TenantContext{}, err
	}
	if tc.Contacts, err = r.loadContacts(ctx, tenantID); err != nil {
		return domain.TenantContext{}, err
	}

	return tc, nil
}

func (r *SandboxRepository) loadAccounts(ctx context.Context, tenantID string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, name, type, status, tax_type FROM accounts WHERE tenant_id = ? ORDER BY code`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var accountType, status string
		if err := rows.Scan(&a.Code, &a.Name, &accountType, &status, &a.TaxType); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		a.Type = domain.AccountType(accountType)
		a.Status = domain.EntityStatus(status)
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

func (r *SandboxRepository) loadTaxRates(ctx context.Context, tenantID string) ([]domain.TaxRate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tax_type, name, rate, status FROM tax_rates WHERE tenant_id = ? ORDER BY tax_type`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing tax rates: %w", err)
	}
	defer rows.Close()

	var rates []domain.TaxRate
	for rows.Next() {
		var t domain.TaxRate
		var status string
		if err := rows.Scan(&t.TaxType, &t.Name, &t.Rate, &status); err != nil {
			return nil, fmt.Errorf("scanning tax rate row: %w", err)
		}
		t.Status = domain.EntityStatus(status)
		rates = append(rates, t)
	}

	return rates, rows.Err()
}

func (r *SandboxRepository) loadContacts(ctx context.Context, tenantID string) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, status, is_customer, is_supplier FROM contacts WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		var status string
		if err := rows.Scan(&c.ID, &c.Name, &status, &c.IsCustomer, &c.IsSupplier); err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		c.Status = domain.EntityStatus(status)
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

// CreateDocument inserts a document and its line items in one transaction.
func (r *SandboxRepository) CreateDocument(ctx context.Context, doc domain.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, tenant_id, type, status, contact_id, currency, total, reference, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.TenantID, string(doc.Type), string(doc.Status), doc.ContactID,
		doc.Currency, doc.Total, doc.Reference,
		doc.CreatedAt.Format(timeFormat),
		doc.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}

	for i, li := range doc.LineItems {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO line_items (tenant_id, document_id, seq, description, quantity, unit_amount, account_code, tax_type)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.TenantID, doc.ID, i, li.Description, li.Quantity, li.UnitAmount, li.AccountCode, li.TaxType,
		)
		if err != nil {
			return fmt.Errorf("inserting line item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document: %w", err)
	}
	return nil
}

// GetDocument loads one document with its line items.
func (r *SandboxRepository) GetDocument(ctx context.Context, tenantID, documentID string) (domain.Document, error) {
	var doc domain.Document
	var docType, status, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, type, status, contact_id, currency, total, reference, created_at, updated_at
		 FROM documents WHERE tenant_id = ? AND id = ?`, tenantID, documentID,
	).Scan(&doc.ID, &doc.TenantID, &docType, &status, &doc.ContactID,
		&doc.Currency, &doc.Total, &doc.Reference, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Document{}, &domain.NotFoundError{Resource: "document", ID: documentID}
		}
		return domain.Document{}, fmt.Errorf("scanning document: %w", err)
	}

	doc.Type = domain.DocumentType(docType)
	doc.Status = domain.Status(status)
	doc.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	doc.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	if doc.LineItems, err = r.loadLineItems(ctx, tenantID, documentID); err != nil {
		return domain.Document{}, err
	}

	return doc, nil
}

func (r *SandboxRepository) loadLineItems(ctx context.Context, tenantID, documentID string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT description, quantity, unit_amount, account_code, tax_type
		 FROM line_items WHERE tenant_id = ? AND document_id = ? ORDER BY seq`, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing line items: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.Description, &li.Quantity, &li.UnitAmount, &li.AccountCode, &li.TaxType); err != nil {
			return nil, fmt.Errorf("scanning line item row: %w", err)
		}
		items = append(items, li)
	}

	return items, rows.Err()
}

// ListDocuments returns documents matching the filter, newest first. Line
// items are not loaded for listings.
func (r *SandboxRepository) ListDocuments(ctx context.Context, tenantID string, filter domain.DocumentFilter) ([]domain.Document, error) {
	query := `SELECT id, tenant_id, type, status, contact_id, currency, total, reference, created_at, updated_at
	          FROM documents WHERE tenant_id = ?`
	args := []any{tenantID}

	if filter.Type != nil {
		query += ` AND type = ?`
		args = append(args, string(*filter.Type))
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var docType, status, createdAt, updatedAt string
		if err := rows.Scan(&doc.ID, &doc.TenantID, &docType, &status, &doc.ContactID,
			&doc.Currency, &doc.Total, &doc.Reference, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		doc.Type = domain.DocumentType(docType)
		doc.Status = domain.Status(status)
		doc.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		doc.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// UpdateDocumentStatus advances a document's lifecycle state.
func (r *SandboxRepository) UpdateDocumentStatus(ctx context.Context, tenantID, documentID string, status domain.Status) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		string(status), time.Now().UTC().Format(timeFormat), tenantID, documentID,
	)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Resource: "document", ID: documentID}
	}

	return nil
}

// CreatePayment records a payment against a document.
func (r *SandboxRepository) CreatePayment(ctx context.Context, p domain.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, tenant_id, document_id, account_code, amount, date, reference)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, p.DocumentID, p.AccountCode, p.Amount,
		p.Date.Format(timeFormat), p.Reference,
	)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

// ListPayments returns payments recorded against a document.
func (r *SandboxRepository) ListPayments(ctx context.Context, tenantID, documentID string) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, document_id, account_code, amount, date, reference
		 FROM payments WHERE tenant_id = ? AND document_id = ? ORDER BY date, id`, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var date string
		if err := rows.Scan(&p.ID, &p.TenantID, &p.DocumentID, &p.AccountCode, &p.Amount, &date, &p.Reference); err != nil {
			return nil, fmt.Errorf("scanning payment row: %w", err)
		}
		p.Date, _ = time.Parse(timeFormat, date)
		payments = append(payments, p)
	}

	return payments, rows.Err()
}
