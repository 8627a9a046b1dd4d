package models

import "time"

// Meal is one entry in the menu catalog
type Meal struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	DietType    string    `json:"diet_type" db:"diet_type"` // veg, non-veg, vegan
	PriceINR    int       `json:"price_inr" db:"price_inr"`
	Calories    int       `json:"calories" db:"calories"`
	Protein     float64   `json:"protein_g" db:"protein_g"`
	Carbs       float64   `json:"carbs_g" db:"carbs_g"`
	Fat         float64   `json:"fat_g" db:"fat_g"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	Available   bool      `json:"available" db:"available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
