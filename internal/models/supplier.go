package models

import "time"

// Supplier is a wedding business profile registered by a user
type Supplier struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	OwnerID      uint      `json:"ownerId" gorm:"index"`
	BusinessName string    `json:"businessName" gorm:"size:120;not null"`
	Service      string    `json:"service" gorm:"size:60;index"`   // florist, photographer, venue, ...
	Location     string    `json:"location" gorm:"size:120;index"` // town or region, matched case-insensitively
	Website      string    `json:"website,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateSupplierRequest defines the request body for registering a business
type CreateSupplierRequest struct {
	BusinessName string `json:"businessName" validate:"required,min=2,max=120"`
	Service      string `json:"service" validate:"required,max=60"`
	Location     string `json:"location" validate:"required,max=120"`
	Website      string `json:"website,omitempty" validate:"omitempty,url"`
	Description  string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// SupplierFilter narrows a supplier search; empty fields match everything
type SupplierFilter struct {
	Location string
	Service  string
	Skip     int
	Limit    int
}
