package domain

import "time"

// SeedSuperAdminID is the fixed id of the account created at initialization.
// It can never be deleted.
const SeedSuperAdminID = "1"

// User is an operator of the CRM.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CanViewAll   bool      `json:"can_view_all"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsSuperAdmin reports whether the user holds the super admin role.
func (u User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// UserPatch carries the user fields that may change after creation.
type UserPatch struct {
	CanViewAll *bool
}

// Customer is a lead or client tracked on one of the sales platforms.
type Customer struct {
	ID              string        `json:"id"`
	CreatorID       string        `json:"creator_id"`
	Name            string        `json:"name"`
	ContactInfo     string        `json:"contact_info"`
	Platform        Platform      `json:"platform"`
	DealDate        *time.Time    `json:"deal_date,omitempty"`
	ExpiryDate      *time.Time    `json:"expiry_date,omitempty"`
	LastTrackedDate time.Time     `json:"last_tracked_date"`
	Images          []ImageAsset  `json:"images"`
	Copywritings    []Copywriting `json:"copywritings"`
	Notes           string        `json:"notes"`
}

// Clone returns a copy that shares no slices or pointers with c.
func (c Customer) Clone() Customer {
	out := c
	if c.DealDate != nil {
		d := *c.DealDate
		out.DealDate = &d
	}
	if c.ExpiryDate != nil {
		e := *c.ExpiryDate
		out.ExpiryDate = &e
	}
	out.Images = append(make([]ImageAsset, 0, len(c.Images)), c.Images...)
	out.Copywritings = append(make([]Copywriting, 0, len(c.Copywritings)), c.Copywritings...)
	return out
}

// ImageAsset is an image attached to a customer. Immutable once created.
type ImageAsset struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	CreatedAt     time.Time `json:"created_at"`
	IsAIGenerated bool      `json:"is_ai_generated"`
}

// Copywriting is a piece of marketing copy attached to a customer.
// Immutable once created.
type Copywriting struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	IsAIGenerated bool      `json:"is_ai_generated"`
	ModelUsed     string    `json:"model_used,omitempty"`
}

// ManualSection is a knowledge-base entry for one platform.
type ManualSection struct {
	ID       string      `json:"id" yaml:"id"`
	Platform Platform    `json:"platform" yaml:"platform"`
	Title    string      `json:"title" yaml:"title"`
	Content  string      `json:"content" yaml:"content"`
	Type     SectionType `json:"type" yaml:"type"`
}
