package database

import (
	"fmt"
	"log"
	"time"

	"github.com/campuscircle/campuscircle/app/models"
	"github.com/campuscircle/campuscircle/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Models lists every table owned by the application, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.MarketplaceItem{},
		&models.FoodItem{},
		&models.FoodOrder{},
		&models.Event{},
		&models.EventParticipant{},
		&models.Message{},
		&models.UserStats{},
		&models.Notification{},
		&models.Transaction{},
		&models.PaymentNotification{},
		&models.OutboxEvent{},
	}
}

func SetupDatabase() {
	var err error
	// clientFoundRows makes RowsAffected count matched rows, which the
	// conditional status update relies on.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
		if err == nil {
			if merr := DB.AutoMigrate(Models()...); merr != nil {
				log.Printf("AutoMigrate failed: %v", merr)
			}
			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retry number %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}
