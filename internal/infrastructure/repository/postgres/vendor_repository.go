package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

type VendorRepository struct {
	db *sql.DB
}

func NewVendorRepository(db *sql.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

const vendorColumns = `id, company_id, name, email, phone, address, vat_number, website, iban`

func (r *VendorRepository) FindByVAT(ctx context.Context, companyID, vatNumber string) (*domain.VendorRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+vendorColumns+`
FROM vendors
WHERE company_id = $1 AND vat_number = $2
LIMIT 1
`, companyID, vatNumber)

	rec, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find vendor by vat: %w", err)
	}
	return rec, nil
}

func (r *VendorRepository) SearchByName(ctx context.Context, companyID, name string, limit int) ([]domain.VendorRecord, error) {
	return r.search(ctx, companyID, "%"+name+"%", limit)
}

func (r *VendorRepository) SearchByFirstWord(ctx context.Context, companyID, word string, limit int) ([]domain.VendorRecord, error) {
	return r.search(ctx, companyID, word+"%", limit)
}

func (r *VendorRepository) search(ctx context.Context, companyID, pattern string, limit int) ([]domain.VendorRecord, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+vendorColumns+`
FROM vendors
WHERE company_id = $1 AND name ILIKE $2
ORDER BY name
LIMIT $3
`, companyID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search vendors: %w", err)
	}
	defer rows.Close()

	var out []domain.VendorRecord
	for rows.Next() {
		rec, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendors: %w", err)
	}
	return out, nil
}

func (r *VendorRepository) Create(ctx context.Context, rec *domain.VendorRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
INSERT INTO vendors (id, company_id, name, email, phone, address, vat_number, website, iban, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		rec.ID, rec.CompanyID, rec.Name,
		nullString(rec.Email), nullString(rec.Phone), nullString(rec.Address),
		nullString(rec.VATNumber), nullString(rec.Website), nullString(rec.IBAN),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (*domain.VendorRecord, error) {
	var rec domain.VendorRecord
	var email, phone, address, vat, website, iban sql.NullString

	if err := row.Scan(&rec.ID, &rec.CompanyID, &rec.Name, &email, &phone, &address, &vat, &website, &iban); err != nil {
		return nil, err
	}
	rec.Email = fromNullString(email)
	rec.Phone = fromNullString(phone)
	rec.Address = fromNullString(address)
	rec.VATNumber = fromNullString(vat)
	rec.Website = fromNullString(website)
	rec.IBAN = fromNullString(iban)
	return &rec, nil
}
