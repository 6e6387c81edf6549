package storefront

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

var OrderStatuses = []interface{}{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled,
}

type Product struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Price       float64        `gorm:"type:numeric(10,2);not null" json:"price"`
	Category    string         `gorm:"size:100;index" json:"category"`
	ImageURL    string         `gorm:"type:text" json:"image_url,omitempty"`
	IsAvailable bool           `gorm:"index" json:"is_available"`
	Addons      datatypes.JSON `gorm:"type:jsonb" json:"addons,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Order struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Status               string         `gorm:"size:20;not null;index" json:"status"`
	Subtotal             float64        `gorm:"type:numeric(10,2)" json:"subtotal"`
	Tax                  float64        `gorm:"type:numeric(10,2)" json:"tax"`
	DeliveryFee          float64        `gorm:"type:numeric(10,2)" json:"delivery_fee"`
	Total                float64        `gorm:"type:numeric(10,2)" json:"total"`
	DeliveryAddress      datatypes.JSON `gorm:"type:jsonb" json:"delivery_address,omitempty"`
	DeliveryInstructions string         `gorm:"type:text" json:"delivery_instructions,omitempty"`
	CustomerName         string         `gorm:"size:255" json:"customer_name,omitempty"`
	CustomerPhone        string         `gorm:"size:50" json:"customer_phone,omitempty"`
	Items                []OrderItem    `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID      uuid.UUID      `gorm:"type:uuid;not null" json:"product_id"`
	Name           string         `gorm:"size:255" json:"name"`
	Quantity       int            `gorm:"not null" json:"quantity"`
	UnitPrice      float64        `gorm:"type:numeric(10,2)" json:"unit_price"`
	ItemTotalPrice float64        `gorm:"type:numeric(10,2)" json:"item_total_price"`
	ImageURL       string         `gorm:"type:text" json:"image_url,omitempty"`
	SelectedAddons datatypes.JSON `gorm:"type:jsonb" json:"selected_addons,omitempty"`
}

// --- DTOs ---

type OrderItemRequest struct {
	ProductID      uuid.UUID      `json:"product_id"`
	Name           string         `json:"name"`
	Quantity       int            `json:"quantity"`
	UnitPrice      float64        `json:"unit_price"`
	ImageURL       string         `json:"image_url"`
	SelectedAddons datatypes.JSON `json:"selected_addons"`
}

type CreateOrderRequest struct {
	Items                []OrderItemRequest `json:"items"`
	Subtotal             float64            `json:"subtotal"`
	Tax                  float64            `json:"tax"`
	DeliveryFee          float64            `json:"delivery_fee"`
	Total                float64            `json:"total"`
	DeliveryAddress      datatypes.JSON     `json:"delivery_address"`
	DeliveryInstructions string             `json:"delivery_instructions"`
	CustomerName         string             `json:"customer_name"`
	CustomerPhone        string             `json:"customer_phone"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ProductListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

type OrderListResponse struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
