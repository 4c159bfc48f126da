package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/pkg/config"
	"github.com/anavasquez/restyle-backend/pkg/db"
	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	"github.com/anavasquez/restyle-backend/pkg/logger"
)

// Seeds a development database with demo categories, members, and listings.
// Running it twice is safe: it bails out when users already exist.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	if cfg.App.IsProd() {
		logg.Error(ctx, "refusing to seed a prod database", nil)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return seed(tx)
	}); err != nil {
		logg.Error(ctx, "seeding failed", err)
		os.Exit(1)
	}

	logg.Info(ctx, "seed data loaded")
}

func seed(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	categories := []models.Category{
		{Name: "Jackets", Description: "Coats and outerwear"},
		{Name: "Dresses", Description: "Dresses and skirts"},
		{Name: "Sneakers", Description: "Casual footwear"},
		{Name: "Accessories", Description: "Bags, belts and jewelry"},
	}
	if err := tx.Create(&categories).Error; err != nil {
		return err
	}

	ana, err := seedUser(tx, "ana@restyle.dev", "Ana Vasquez", "password123")
	if err != nil {
		return err
	}
	leo, err := seedUser(tx, "leo@restyle.dev", "Leo Ortiz", "password123")
	if err != nil {
		return err
	}

	products := []models.Product{
		{
			UserID:      ana.ID,
			CategoryID:  &categories[0].ID,
			Name:        "Vintage denim jacket",
			Description: "Light wash, barely worn",
			Price:       decimal.NewFromFloat(34.50),
			Size:        "M",
			Status:      enums.ProductStatusAvailable,
		},
		{
			UserID:      ana.ID,
			CategoryID:  &categories[2].ID,
			Name:        "White leather sneakers",
			Description: "Minor scuffs on the toe",
			Price:       decimal.NewFromFloat(22.00),
			Size:        "39",
			Status:      enums.ProductStatusAvailable,
		},
		{
			UserID:      leo.ID,
			CategoryID:  &categories[1].ID,
			Name:        "Floral summer dress",
			Description: "Worn once at a wedding",
			Price:       decimal.NewFromFloat(18.75),
			Size:        "S",
			Status:      enums.ProductStatusAvailable,
		},
		{
			UserID:      leo.ID,
			CategoryID:  &categories[3].ID,
			Name:        "Canvas tote bag",
			Description: "Sturdy everyday carry",
			Price:       decimal.NewFromFloat(9.99),
			Size:        "",
			Status:      enums.ProductStatusAvailable,
		},
	}
	return tx.Create(&products).Error
}

func seedUser(tx *gorm.DB, email, name, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         enums.UserRoleUser,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, err
	}
	if err := tx.Create(&models.Cart{UserID: user.ID}).Error; err != nil {
		return nil, err
	}
	return user, nil
}
