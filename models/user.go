package models

import (
	"time"
)

// User is the identity-linked player profile with lifetime aggregates.
// ExternalID is the stable identity reference handed to us by the auth provider.
type User struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalID string  `gorm:"uniqueIndex;not null" json:"externalId"`
	Email      string  `gorm:"index;not null" json:"email"`
	FirstName  *string `json:"firstName,omitempty"`
	LastName   *string `json:"lastName,omitempty"`
	ImageURL   *string `json:"imageUrl,omitempty"`

	// Location data for regional filtering
	Country  *string `gorm:"index" json:"country,omitempty"`
	Region   *string `gorm:"index" json:"region,omitempty"`
	Timezone *string `json:"timezone,omitempty"`

	// Lifetime aggregates, never decreasing
	TotalGamesPlayed int   `gorm:"not null;default:0" json:"totalGamesPlayed"`
	BestStreak       int   `gorm:"index;not null;default:0" json:"bestStreak"`
	TotalScore       int64 `gorm:"index;not null;default:0" json:"totalScore"`

	PreferredTheme *string `json:"preferredTheme,omitempty"`

	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// UserProfile is the input of an identity upsert.
type UserProfile struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	ImageURL  *string `json:"imageUrl" validate:"omitempty,url"`
}

// UserPreferences is a partial update; nil fields are left untouched.
type UserPreferences struct {
	PreferredTheme *string `json:"preferredTheme" validate:"omitempty,oneof=light dark auto"`
	Country        *string `json:"country" validate:"omitempty,iso3166_1_alpha2"`
	Region         *string `json:"region" validate:"omitempty,max=100"`
	Timezone       *string `json:"timezone" validate:"omitempty,timezone"`
}

// PublicUser is the subset of a user that may appear next to other players' data.
type PublicUser struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	ImageURL  *string `json:"imageUrl,omitempty"`
}

// Public strips a user down to its public fields.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		ImageURL:  u.ImageURL,
	}
}

// CountryCode returns the stored country or "" when unset.
func (u *User) CountryCode() string {
	if u == nil || u.Country == nil {
		return ""
	}
	return *u.Country
}
