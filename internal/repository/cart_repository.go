package repository

import (
	"gorm.io/gorm"

	"klarna-payments-backend/internal/models"
)

type CartRepository interface {
	GetByCheckoutID(checkoutID string) (*models.Cart, error)
	Save(cart *models.Cart) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetByCheckoutID(checkoutID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.Preload("Items").First(&cart, "checkout_id = ?", checkoutID).Error
	return &cart, err
}

func (r *cartRepository) Save(cart *models.Cart) error {
	return r.db.Save(cart).Error
}
