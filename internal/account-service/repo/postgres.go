package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")
	ErrNotFound      = errors.New("not found")
)

// mapUniqueViolation traduz violação de unicidade em cadastro duplicado.
// Dois registros concorrentes do mesmo username passam ambos pelo SELECT
// EXISTS; o perdedor do INSERT cai aqui em vez de virar um 500.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if pqErr.Constraint == "users_email_key" {
			return ErrEmailTaken
		}
		return ErrUsernameTaken
	}
	return err
}

// Postgres implementa operações de contas (usuários e KYC) em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CreateUser insere um novo usuário com kyc_status 'pending'
// Verifica duplicidade de username e email dentro da mesma transação
func (p *Postgres) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists bool
	if err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, username).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}
	if err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	u := &User{ID: uuid.NewString(), Username: username, Email: email, PasswordHash: passwordHash}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1,$2,$3,$4)
		RETURNING is_active, kyc_status, created_at`,
		u.ID, username, email, passwordHash,
	).Scan(&u.IsActive, &u.KYCStatus, &u.CreatedAt)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByUsername retorna o usuário pelo username (usado no login)
func (p *Postgres) GetByUsername(ctx context.Context, username string) (*User, error) {
	return p.get(ctx, `WHERE username=$1`, username)
}

// GetByID retorna o usuário pelo id
func (p *Postgres) GetByID(ctx context.Context, id string) (*User, error) {
	return p.get(ctx, `WHERE id=$1`, id)
}

func (p *Postgres) get(ctx context.Context, where string, arg any) (*User, error) {
	u := &User{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, is_active, kyc_status, created_at
		FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.KYCStatus, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SubmitKYC registra um pedido de verificação com status 'pending'
func (p *Postgres) SubmitKYC(ctx context.Context, userID, docType, docNumber string) (*KYCSubmission, error) {
	k := &KYCSubmission{ID: uuid.NewString(), UserID: userID, DocumentType: docType, DocumentNumber: docNumber}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO kyc_submissions (id, user_id, document_type, document_number)
		VALUES ($1,$2,$3,$4)
		RETURNING status, submitted_at`,
		k.ID, userID, docType, docNumber,
	).Scan(&k.Status, &k.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// LatestKYC retorna a submissão mais recente do usuário
func (p *Postgres) LatestKYC(ctx context.Context, userID string) (*KYCSubmission, error) {
	k := &KYCSubmission{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, document_type, document_number, status, submitted_at
		FROM kyc_submissions
		WHERE user_id=$1
		ORDER BY submitted_at DESC
		LIMIT 1`, userID,
	).Scan(&k.ID, &k.UserID, &k.DocumentType, &k.DocumentNumber, &k.Status, &k.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// ReviewKYC aprova ou rejeita uma submissão e propaga o status para o usuário
// na mesma transação
func (p *Postgres) ReviewKYC(ctx context.Context, submissionID, status string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		UPDATE kyc_submissions SET status=$1 WHERE id=$2 RETURNING user_id`,
		status, submissionID,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE users SET kyc_status=$1 WHERE id=$2`, status, userID); err != nil {
		return err
	}

	return tx.Commit()
}
