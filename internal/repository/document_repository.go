package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-documents/internal/domain"
)

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) DocumentRepository {
	return &documentRepository{db: db}
}

const insertDocumentQuery = `
	INSERT INTO documents (reference, loan_id, kind, body, created_at)
	VALUES (:reference, :loan_id, :kind, :body, :created_at)
`

func (r *documentRepository) Save(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.NamedExecContext(ctx, insertDocumentQuery, doc)
	return err
}

func (r *documentRepository) ListByLoanID(ctx context.Context, loanID string) ([]*domain.Document, error) {
	query := `
		SELECT reference, loan_id, kind, body, created_at
		FROM documents
		WHERE loan_id = $1
		ORDER BY created_at DESC
	`

	var docs []*domain.Document
	if err := r.db.SelectContext(ctx, &docs, query, loanID); err != nil {
		return nil, err
	}

	return docs, nil
}

func (r *documentRepository) GetTemplate(ctx context.Context, kind domain.DocumentKind) (string, error) {
	query := `SELECT body FROM document_templates WHERE kind = $1`

	var body string
	if err := r.db.GetContext(ctx, &body, query, kind); err != nil {
		return "", err
	}

	return body, nil
}

func (r *documentRepository) SaveTemplate(ctx context.Context, kind domain.DocumentKind, body string) error {
	query := `
		INSERT INTO document_templates (kind, body, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, kind, body, time.Now())
	return err
}
