package models

import (
	"time"
)

// Profile represents a user profile in the system
type Profile struct {
	ID        string    `json:"id" db:"id"` // UUID that matches auth.users.id
	FullName  string    `json:"full_name" db:"full_name"`
	Phone     string    `json:"phone" db:"phone"`
	AvatarURL string    `json:"avatar_url" db:"avatar_url"`
	HeightCm  float64   `json:"height_cm" db:"height_cm"`
	WeightKg  float64   `json:"weight_kg" db:"weight_kg"`
	Credits   int       `json:"credits" db:"credits"` // Default value: 100 credits
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BMI returns the body-mass index derived from the stored height and weight,
// or 0 when either measurement is missing.
func (p Profile) BMI() float64 {
	if p.HeightCm <= 0 || p.WeightKg <= 0 {
		return 0
	}
	m := p.HeightCm / 100
	return p.WeightKg / (m * m)
}

// NewProfileRequest is the request structure for creating a new profile
type NewProfileRequest struct {
	UserID   string `json:"user_id"` // The user ID from Supabase auth
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// NewProfileResponse is the response structure when a profile is created
type NewProfileResponse struct {
	Profile Profile `json:"profile"`
	Success bool    `json:"success"`
}

// UpdateProfileRequest carries the editable profile fields
type UpdateProfileRequest struct {
	FullName *string  `json:"full_name,omitempty"`
	Phone    *string  `json:"phone,omitempty"`
	HeightCm *float64 `json:"height_cm,omitempty"`
	WeightKg *float64 `json:"weight_kg,omitempty"`
}
