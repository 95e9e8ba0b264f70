package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"klarna-payments-backend/internal/models"
)

type OrderRepository interface {
	GetByID(id uint) (*models.Order, error)
	PaymentComplete(id uint, transactionID string) error
	UpdateStatus(id uint, status string) error
	AddNote(orderID uint, note string) error
	AddMeta(orderID uint, key, value string) error
	SetMeta(orderID uint, key, value string) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Notes").Preload("Meta").First(&order, id).Error
	return &order, err
}

func (r *orderRepository) PaymentComplete(id uint, transactionID string) error {
	now := time.Now()
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":         models.OrderStatusProcessing,
		"transaction_id": transactionID,
		"paid_at":        &now,
	}).Error
}

func (r *orderRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *orderRepository) AddNote(orderID uint, note string) error {
	return r.db.Create(&models.OrderNote{OrderID: orderID, Note: note}).Error
}

// AddMeta writes a meta value only when the key is not present yet.
func (r *orderRepository) AddMeta(orderID uint, key, value string) error {
	meta := &models.OrderMeta{OrderID: orderID, Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "key"}},
		DoNothing: true,
	}).Create(meta).Error
}

// SetMeta writes a meta value, replacing any previous one.
func (r *orderRepository) SetMeta(orderID uint, key, value string) error {
	meta := &models.OrderMeta{OrderID: orderID, Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
	}).Create(meta).Error
}
