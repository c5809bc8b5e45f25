package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository/common"
)

// ListingRepository отвечает за работу с таблицей listings.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository создаёт экземпляр репозитория.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create создаёт объявление.
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	query := `
		INSERT INTO listings (seller_id, title, description, price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		listing.SellerID, listing.Title, listing.Description, listing.Price, listing.Status,
	).Scan(&listing.ID, &listing.CreatedAt, &listing.UpdatedAt); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать объявление")
	}
	return nil
}

// GetByID возвращает объявление по идентификатору.
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return common.GetByID[models.Listing](ctx, r.db, "listings", id, apperror.ErrListingNotFound)
}

// ListBySeller возвращает объявления продавца.
func (r *ListingRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	query := `
		SELECT id, seller_id, title, description, price, status, created_at, updated_at
		FROM listings
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &listings, query, sellerID, limit, offset); err != nil {
		return nil, fmt.Errorf("listing repository: list by seller %w", err)
	}
	return listings, nil
}
