package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"techstore/internal/domain"
)

var ErrResetTokenNotFound = errors.New("reset token not found")

// ResetTokenRepository keeps at most one password reset token per email
type ResetTokenRepository interface {
	// Upsert replaces any earlier token issued for the same email.
	Upsert(ctx context.Context, token *domain.ResetToken) error
	FindByToken(ctx context.Context, token string) (*domain.ResetToken, error)
	MarkUsed(ctx context.Context, token string) error
}

type resetTokenRepository struct {
	db *sql.DB
}

// NewResetTokenRepository creates a new instance of ResetTokenRepository
func NewResetTokenRepository(db *sql.DB) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

func (r *resetTokenRepository) Upsert(ctx context.Context, token *domain.ResetToken) error {
	query := `
		INSERT INTO reset_tokens (email, token, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (email) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, used = EXCLUDED.used, created_at = NOW()
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query, token.Email, token.Token, token.ExpiresAt, token.Used)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	return nil
}

func (r *resetTokenRepository) FindByToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	query := `SELECT email, token, expires_at, used FROM reset_tokens WHERE token = $1`

	resetToken := &domain.ResetToken{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, token).Scan(
		&resetToken.Email,
		&resetToken.Token,
		&resetToken.ExpiresAt,
		&resetToken.Used,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("failed to find reset token: %w", err)
	}

	return resetToken, nil
}

func (r *resetTokenRepository) MarkUsed(ctx context.Context, token string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE reset_tokens SET used = TRUE WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}

	return requireOne(result, ErrResetTokenNotFound)
}
