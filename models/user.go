package models

import (
	"context"
	"errors"
	"time"

	"github.com/chasinhq/chasin_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	AccountId    string    `gorm:"size:36;index;not null" json:"account_id"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type NewSignup struct {
	AccountName string `json:"accountName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
}

type NewLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func GetUserById(ctx context.Context, db *gorm.DB, id string) (*User, error) {
	var user User
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LoginUser verifies credentials and returns the user plus a signed token.
// Bad email and bad password are indistinguishable to the caller.
func LoginUser(ctx context.Context, db *gorm.DB, input *NewLogin) (*User, string, error) {
	user, err := GetUserByEmail(ctx, db, input.Email)
	if err != nil {
		return nil, "", errors.New("invalid credentials")
	}
	if err := utils.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return nil, "", errors.New("invalid credentials")
	}
	token, err := utils.JwtGenerate(user.ID, user.AccountId)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// CreateAccountAndUser provisions a tenant at signup: the account row, its
// first user with a bcrypt password hash, and a session token.
func CreateAccountAndUser(ctx context.Context, db *gorm.DB, input *NewSignup) (*Account, *User, string, error) {
	if _, err := GetUserByEmail(ctx, db, input.Email); err == nil {
		return nil, nil, "", errors.New("user already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, "", err
	}

	passwordHash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, nil, "", err
	}

	account := Account{Name: input.AccountName}
	user := User{Email: input.Email, PasswordHash: string(passwordHash)}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		user.AccountId = account.ID
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, nil, "", err
	}

	token, err := utils.JwtGenerate(user.ID, user.AccountId)
	if err != nil {
		return nil, nil, "", err
	}
	return &account, &user, token, nil
}
