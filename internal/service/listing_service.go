package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/validation"
)

// ListingCatalog описывает зависимости ListingService от слоя хранилища.
type ListingCatalog interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Listing, error)
}

// ListingService инкапсулирует бизнес-логику объявлений.
type ListingService struct {
	listings ListingCatalog
}

// CreateListingInput содержит данные нового объявления.
type CreateListingInput struct {
	Title       string
	Description string
	Price       float64
}

// NewListingService создаёт сервис объявлений.
func NewListingService(listings ListingCatalog) *ListingService {
	return &ListingService{listings: listings}
}

// CreateListing публикует новое объявление от имени продавца.
func (s *ListingService) CreateListing(ctx context.Context, sellerID uuid.UUID, in CreateListingInput) (*models.Listing, error) {
	if err := validation.ValidateListingTitle(in.Title); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePrice(in.Price); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	listing := &models.Listing{
		SellerID: sellerID,
		Title:    in.Title,
		Price:    in.Price,
		Status:   models.ListingStatusActive,
	}
	if in.Description != "" {
		listing.Description = &in.Description
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// GetListing возвращает объявление по идентификатору.
func (s *ListingService) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return s.listings.GetByID(ctx, id)
}

// ListSellerListings возвращает страницу объявлений продавца.
func (s *ListingService) ListSellerListings(ctx context.Context, sellerID uuid.UUID, page, limit int) ([]models.Listing, error) {
	page, limit = validation.SanitizePagination(page, limit)
	return s.listings.ListBySeller(ctx, sellerID, limit, (page-1)*limit)
}
