package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"templeseva-backend/config"
	"templeseva-backend/models"
	"templeseva-backend/routes"
	"templeseva-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.CapacityRule{},
		&models.DayCounter{},
		&models.Booking{},
		&models.NotificationLog{},
	)

	seedCapacityRule()
	seedAdmin()
}

func main() {

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	notifier := services.NewNotificationService(config.DB)
	notifier.Start()

	r := routes.SetupRouter(notifier)
	printRoutes(r)
	r.Run(":" + port)
}

// seedCapacityRule makes sure admission control has a caps row to work
// against on a fresh database.
func seedCapacityRule() {
	var rule models.CapacityRule
	err := config.DB.First(&rule).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Failed to read capacity rule: %v", err)
		return
	}

	rule = models.CapacityRule{
		Thirumanjanam: models.DefaultDailyCap,
		Abhisekam:     models.DefaultDailyCap,
	}
	if err := config.DB.Create(&rule).Error; err != nil {
		log.Printf("Failed to seed capacity rule: %v", err)
		return
	}
	log.Println("Seeded default capacity rule")
}

// seedAdmin creates the bootstrap admin from ADMIN_EMAIL/ADMIN_PASSWORD
// when no admin exists yet.
func seedAdmin() {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	var existing models.User
	if err := config.DB.First(&existing, "email = ?", email).Error; err == nil {
		return
	}

	admin := models.User{
		Email:    email,
		Password: password,
		Name:     "Administrator",
		Roles:    models.RoleSet{models.RoleAdmin, models.RoleApprover},
		IsActive: true,
	}
	if err := config.DB.Create(&admin).Error; err != nil {
		log.Printf("Failed to seed admin user: %v", err)
		return
	}
	log.Printf("Seeded admin user %s", email)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
