package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for stored records
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Account is a stored user of the stub API
type Account struct {
	BaseModel
	Email        string    `gorm:"unique;not null"`
	PasswordHash string    `gorm:"not null"`
	Name         string    `gorm:"not null"`
	Phone        string
	Role         Role      `gorm:"type:varchar(16);not null;default:user"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Profile renders the account as the API's user representation
func (a *Account) Profile() UserProfile {
	return UserProfile{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Role:      a.Role,
		CreatedAt: a.CreatedAt.UTC(),
	}
}

// CatalogEntry is a stored service of the public catalog
type CatalogEntry struct {
	BaseModel
	Title       string `gorm:"not null"`
	Slug        string `gorm:"unique;not null"`
	Description string `gorm:"type:text"`
}

// Service renders the entry as the API's service representation
func (e *CatalogEntry) Service() Service {
	return Service{
		ID:          e.ID,
		Title:       e.Title,
		Slug:        e.Slug,
		Description: e.Description,
	}
}

// AutoMigrate creates or updates the stub API's tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{}, &CatalogEntry{})
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
