package repo

import "time"

// User é o modelo persistido no Postgres.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	KYCStatus    string
	CreatedAt    time.Time
}

// KYCSubmission é um pedido de verificação de identidade enviado pelo usuário.
type KYCSubmission struct {
	ID             string
	UserID         string
	DocumentType   string
	DocumentNumber string
	Status         string
	SubmittedAt    time.Time
}
