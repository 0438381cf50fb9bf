package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tolgaturan/authgate/internal/database/models"
)

// RefreshTokenRepository is the ledger of issued refresh tokens. A record is
// Active until it expires or is revoked; both of those states are terminal.
// Presenting a revoked token is treated as replay of a rotated token and
// revokes every session of the owning user.
type RefreshTokenRepository interface {
	Issue(userID uuid.UUID, token string) error
	VerifyAndRotate(token string) (uuid.UUID, error)
	Revoke(token string) error
	RevokeAllForUser(userID uuid.UUID) error
	Cleanup() (int64, error)
}

type refreshTokenRepository struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewRefreshTokenRepository creates a new refresh token repository instance.
// ttl is the lifetime assigned to newly issued records.
func NewRefreshTokenRepository(db *gorm.DB, ttl time.Duration) RefreshTokenRepository {
	return &refreshTokenRepository{db: db, ttl: ttl}
}

// hashToken computes the deterministic digest used as the ledger lookup key.
// This is not a password hash: no salt and no work factor. The digested value
// is a signed token with enough entropy that an unsalted SHA-256 digest is
// safe, and determinism is what makes exact-match lookup possible.
func hashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

func (r *refreshTokenRepository) Issue(userID uuid.UUID, token string) error {
	record := &models.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(r.ttl),
		Revoked:   false,
	}
	return r.db.Create(record).Error
}

func (r *refreshTokenRepository) VerifyAndRotate(token string) (uuid.UUID, error) {
	tokenHash := hashToken(token)
	var userID uuid.UUID

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var record models.RefreshToken
		if err := tx.Where("token_hash = ?", tokenHash).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenNotFound
			}
			return err
		}

		// A record is dead at its expiry instant, not one tick after it.
		if !time.Now().Before(record.ExpiresAt) {
			return ErrTokenExpired
		}

		if record.Revoked {
			// An already-rotated token came back: assume theft and kill
			// every session the user holds.
			if err := revokeAllForUser(tx, record.UserID); err != nil {
				return err
			}
			return ErrTokenReuseDetected
		}

		// Rotation is a conditional update, not read-then-write: of two
		// concurrent refreshes only one can flip the flag, the other falls
		// into the reuse path above on retry semantics.
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = false", record.ID).
			Update("revoked", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if err := revokeAllForUser(tx, record.UserID); err != nil {
				return err
			}
			return ErrTokenReuseDetected
		}

		userID = record.UserID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

// Revoke marks the matching record revoked. Revoking a token that was never
// issued or is already revoked is a no-op, so logout stays idempotent.
func (r *refreshTokenRepository) Revoke(token string) error {
	return r.db.Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(token)).
		Update("revoked", true).Error
}

func (r *refreshTokenRepository) RevokeAllForUser(userID uuid.UUID) error {
	return revokeAllForUser(r.db, userID)
}

func revokeAllForUser(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Update("revoked", true).Error
}

// Cleanup deletes every expired or revoked record and reports how many were
// removed. Active records are never touched.
func (r *refreshTokenRepository) Cleanup() (int64, error) {
	result := r.db.Where("expires_at <= ? OR revoked = true", time.Now()).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

// Repository errors
var (
	ErrTokenNotFound      = errors.New("refresh token not found")
	ErrTokenExpired       = errors.New("refresh token expired")
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
)
