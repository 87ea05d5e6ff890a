package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is what a user does on the platform.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

// Customer is a user profile.
type Customer struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Language   string     `json:"language"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

func (c *Customer) GetID() string   { return c.ID }
func (c *Customer) SetID(id string) { c.ID = id }

// CustomerPatch changes selected profile fields.
type CustomerPatch struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	Language *string `json:"language,omitempty"`
}

// Apply merges the patch into c.
func (patch CustomerPatch) Apply(c *Customer) {
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if patch.Role != nil {
		c.Role = *patch.Role
	}
	if patch.Language != nil {
		c.Language = ParseLanguage(*patch.Language)
	}
}

// Merchant is a seller on the storefront.
type Merchant struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Owner    string  `json:"owner" yaml:"owner"`
	Email    string  `json:"email" yaml:"email"`
	Phone    string  `json:"phone,omitempty" yaml:"phone"`
	City     string  `json:"city" yaml:"city"`
	GSTIN    string  `json:"gstin,omitempty" yaml:"gstin"`
	Verified bool    `json:"verified" yaml:"verified"`
	Rating   float64 `json:"rating" yaml:"rating"`
}

func (m *Merchant) GetID() string   { return m.ID }
func (m *Merchant) SetID(id string) { m.ID = id }

// MerchantPatch changes selected merchant fields.
type MerchantPatch struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	City     *string `json:"city,omitempty"`
	Verified *bool   `json:"verified,omitempty"`
}

// Apply merges the patch into m.
func (patch MerchantPatch) Apply(m *Merchant) {
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Email != nil {
		m.Email = *patch.Email
	}
	if patch.Phone != nil {
		m.Phone = *patch.Phone
	}
	if patch.City != nil {
		m.City = *patch.City
	}
	if patch.Verified != nil {
		m.Verified = *patch.Verified
	}
}

// Coupon is a merchant promotion.
type Coupon struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	MerchantID string          `json:"merchantId"`
	Percent    int             `json:"percent"`
	MinOrder   decimal.Decimal `json:"minOrder"`
	ExpiresAt  *time.Time      `json:"expiresAt,omitempty"`
	Active     bool            `json:"active"`
}

func (c *Coupon) GetID() string   { return c.ID }
func (c *Coupon) SetID(id string) { c.ID = id }

// PayoutStatus is the settlement state of a payout.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
)

// Payout is a settlement to a merchant.
type Payout struct {
	ID         string          `json:"id"`
	MerchantID string          `json:"merchantId"`
	Amount     decimal.Decimal `json:"amount"`
	Status     PayoutStatus    `json:"status"`
	Date       time.Time       `json:"date"`
}

func (p *Payout) GetID() string   { return p.ID }
func (p *Payout) SetID(id string) { p.ID = id }
