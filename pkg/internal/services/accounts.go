package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lightpath/huddle/pkg/internal/database"
	"github.com/lightpath/huddle/pkg/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("this email is already in use")
)

func CreateAccount(name, email, password string, avatar *string) (models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("unable to hash password: %v", err)
	}

	account := models.Account{
		Uuid:         uuid.NewString(),
		Name:         name,
		Email:        email,
		Avatar:       avatar,
		PasswordHash: string(hash),
	}

	if err := database.C.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return account, ErrEmailTaken
		}
		return account, err
	}

	return account, nil
}

func LoginAccount(email, password string) (models.Account, string, error) {
	var account models.Account
	if err := database.C.Where(&models.Account{Email: email}).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, "", ErrInvalidCredentials
		}
		return account, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return account, "", ErrInvalidCredentials
	}

	tk, err := EncodeAuthToken(account)
	if err != nil {
		return account, "", err
	}

	return account, tk, nil
}

func GetAccount(id uint) (models.Account, error) {
	var account models.Account
	if err := database.C.Where(&models.Account{
		BaseModel: models.BaseModel{ID: id},
	}).First(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}

// Authenticate exchanges a bearer token for the account it belongs to.
func Authenticate(tk string) (models.Account, error) {
	claims, err := ParseAuthToken(tk)
	if err != nil {
		return models.Account{}, err
	}
	return GetAccount(claims.UserID)
}
