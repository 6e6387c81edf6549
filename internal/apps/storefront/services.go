package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrInvalidStatus   = errors.New("invalid order status")
)

func notNilUUID(value interface{}) error {
	if id, ok := value.(uuid.UUID); ok && id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
}

func (r OrderItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductID, validation.By(notNilUUID)),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1), validation.Max(99)),
		validation.Field(&r.UnitPrice, validation.Min(0.0)),
		validation.Field(&r.Name, validation.Length(0, 255)),
	)
}

func (r CreateOrderRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Subtotal, validation.Min(0.0)),
		validation.Field(&r.Tax, validation.Min(0.0)),
		validation.Field(&r.DeliveryFee, validation.Min(0.0)),
		validation.Field(&r.Total, validation.Min(0.0)),
		validation.Field(&r.CustomerName, validation.Length(0, 255)),
		validation.Field(&r.CustomerPhone, validation.Length(0, 50)),
	); err != nil {
		return err
	}
	for i, item := range r.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	return nil
}

func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(OrderStatuses...)),
	)
}

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListProducts returns products ordered by category then name. An empty
// category means all; availableOnly hides sold-out items.
func (s *CatalogService) ListProducts(ctx context.Context, category string, availableOnly bool) ([]Product, error) {
	q := s.db.WithContext(ctx).Model(&Product{})
	if category = strings.TrimSpace(category); category != "" {
		q = q.Where("category = ?", category)
	}
	if availableOnly {
		q = q.Where("is_available = ?", true)
	}

	var products []Product
	if err := q.Order("category ASC, name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.WithContext(ctx).Model(&Product{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

type OrderService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db, now: time.Now}
}

// CreateOrder stores the order and its items in one transaction. Amounts are
// taken as supplied by the client.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	now := s.now().UTC()
	order := Order{
		ID:                   uuid.New(),
		UserID:               userID,
		Status:               StatusPending,
		Subtotal:             req.Subtotal,
		Tax:                  req.Tax,
		DeliveryFee:          req.DeliveryFee,
		Total:                req.Total,
		DeliveryAddress:      req.DeliveryAddress,
		DeliveryInstructions: req.DeliveryInstructions,
		CustomerName:         req.CustomerName,
		CustomerPhone:        req.CustomerPhone,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	items := make([]OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      it.ProductID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			ItemTotalPrice: float64(it.Quantity) * it.UnitPrice,
			ImageURL:       it.ImageURL,
			SelectedAddons: it.SelectedAddons,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&order).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}

	order.Items = items
	return &order, nil
}

// ListOrders returns the user's orders, newest first. A nil userID lists
// every order.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]Order, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if userID != uuid.Nil {
			db = db.Where("user_id = ?", userID)
		}
		if status != "" {
			db = db.Where("status = ?", status)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&Order{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []Order
	err := s.db.WithContext(ctx).Scopes(filter).
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	return orders, total, err
}

// GetOrder loads one order. Unless privileged, orders of other users are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID, privileged bool) (*Order, error) {
	q := s.db.WithContext(ctx).Preload("Items").Where("id = ?", orderID)
	if !privileged {
		q = q.Where("user_id = ?", userID)
	}

	var order Order
	err := q.First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req UpdateStatusRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	result := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"updated_at": s.now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
