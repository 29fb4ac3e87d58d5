package models

import (
	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User aggregate.
type UserModel struct {
	AggregateModel
	Email        string               `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string               `gorm:"type:varchar(255);not null"`
	FirstName    string               `gorm:"type:varchar(100)"`
	LastName     string               `gorm:"type:varchar(100)"`
	Phone        string               `gorm:"type:varchar(50)"`
	IsAdmin      bool                 `gorm:"not null"`
	IsActive     bool                 `gorm:"not null"`
	Preferences  JSON[map[string]any] `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Phone:        m.Phone,
		IsAdmin:      m.IsAdmin,
		IsActive:     m.IsActive,
		Preferences:  m.Preferences.Data,
	}
	if u.Preferences == nil {
		u.Preferences = map[string]any{}
	}
	m.loadAggregate(&u.BaseAggregateRoot)
	return u
}

// UserModelFromDomain creates a persistence model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		IsAdmin:      u.IsAdmin,
		IsActive:     u.IsActive,
		Preferences:  NewJSON(u.Preferences),
	}
	m.setAggregate(u.BaseAggregateRoot)
	return m
}

// DeliveryAddressModel is the persistence model for a user's delivery address
type DeliveryAddressModel struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	FirstName  string    `gorm:"type:varchar(100)"`
	LastName   string    `gorm:"type:varchar(100)"`
	Street     string    `gorm:"type:varchar(255);not null"`
	City       string    `gorm:"type:varchar(100);not null"`
	PostalCode string    `gorm:"type:varchar(20);not null"`
	Country    string    `gorm:"type:varchar(100);not null"`
	Phone      string    `gorm:"type:varchar(50)"`
	IsDefault  bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DeliveryAddressModel) TableName() string {
	return "delivery_addresses"
}

// ToDomain converts the persistence model to a domain DeliveryAddress
func (m *DeliveryAddressModel) ToDomain() *identity.DeliveryAddress {
	return &identity.DeliveryAddress{
		BaseEntity: m.BaseModel.entity(),
		UserID:     m.UserID,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Street:     m.Street,
		City:       m.City,
		PostalCode: m.PostalCode,
		Country:    m.Country,
		Phone:      m.Phone,
		IsDefault:  m.IsDefault,
	}
}

// DeliveryAddressModelFromDomain creates a persistence model from a domain DeliveryAddress
func DeliveryAddressModelFromDomain(a *identity.DeliveryAddress) *DeliveryAddressModel {
	m := &DeliveryAddressModel{
		UserID:     a.UserID,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		IsDefault:  a.IsDefault,
	}
	m.setEntity(a.BaseEntity)
	return m
}

// PaymentMethodModel is the persistence model for a saved payment method
type PaymentMethodModel struct {
	BaseModel
	UserID    uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Type      identity.PaymentMethodType `gorm:"type:varchar(30);not null"`
	Provider  string                     `gorm:"type:varchar(50)"`
	Metadata  JSON[map[string]any]       `gorm:"type:jsonb"`
	IsDefault bool                       `gorm:"not null"`
	IsActive  bool                       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentMethodModel) TableName() string {
	return "payment_methods"
}

// ToDomain converts the persistence model to a domain PaymentMethod
func (m *PaymentMethodModel) ToDomain() *identity.PaymentMethod {
	meta := m.Metadata.Data
	if meta == nil {
		meta = map[string]any{}
	}
	return &identity.PaymentMethod{
		BaseEntity: m.BaseModel.entity(),
		UserID:     m.UserID,
		Type:       m.Type,
		Provider:   m.Provider,
		Metadata:   meta,
		IsDefault:  m.IsDefault,
		IsActive:   m.IsActive,
	}
}

// PaymentMethodModelFromDomain creates a persistence model from a domain PaymentMethod
func PaymentMethodModelFromDomain(p *identity.PaymentMethod) *PaymentMethodModel {
	m := &PaymentMethodModel{
		UserID:    p.UserID,
		Type:      p.Type,
		Provider:  p.Provider,
		Metadata:  NewJSON(p.Metadata),
		IsDefault: p.IsDefault,
		IsActive:  p.IsActive,
	}
	m.setEntity(p.BaseEntity)
	return m
}
