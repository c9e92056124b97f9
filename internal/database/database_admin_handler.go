package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"essops/internal/domain"
	"essops/internal/support"
)

// EnsureDefaultAdmin creates the account when no account with that username
// exists. It reports whether an account was created.
func EnsureDefaultAdmin(username, password string) (bool, error) {
	var count int64
	if err := DB.Model(&domain.AdminAccount{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := support.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash default admin password: %w", err)
	}

	if err := DB.Create(&domain.AdminAccount{Username: username, PasswordHash: hash}).Error; err != nil {
		return false, err
	}
	log.Info("Created default admin account", "username", username)
	return true, nil
}

// AuthenticateAdmin checks the credentials and stamps LastLogin on success.
// Unknown users and wrong passwords both yield false without an error.
func AuthenticateAdmin(username, password string) (bool, error) {
	var account domain.AdminAccount
	err := DB.Where("username = ?", username).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !support.CheckPasswordHash(password, account.PasswordHash) {
		return false, nil
	}

	now := time.Now()
	if err := DB.Model(&account).Update("last_login", &now).Error; err != nil {
		return false, err
	}
	return true, nil
}
