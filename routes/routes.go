package routes

import (
	"os"
	"strings"

	"templeseva-backend/config"
	"templeseva-backend/controllers"
	"templeseva-backend/services"
	"templeseva-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(notifier *services.NotificationService) *gin.Engine {
	r := gin.Default()

	origins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	bookingController := controllers.NewBookingController(config.DB, notifier)

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	// Booking workflow surface
	booking := r.Group("/services")
	booking.Use(utils.AuthMiddleware())
	{
		booking.POST("/datecheck", bookingController.DateCheck)
		booking.POST("/posuser", bookingController.CreatePOSBooking)
		booking.GET("/approver", bookingController.ListBookings)
		booking.POST("/approver", bookingController.DecideBooking)
	}

	limit := r.Group("/servicelimit")
	limit.Use(utils.AuthMiddleware())
	{
		limit.GET("", controllers.GetServiceLimit)
		limit.PUT("", controllers.UpdateServiceLimit)
	}

	r.POST("/sendEmail", utils.AuthMiddleware(), bookingController.SendBookingEmail)

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Seva catalog routes
		catalog := api.Group("/services")
		{
			catalog.POST("", controllers.CreateService)
			catalog.GET("", controllers.GetServices)
			catalog.GET("/:id", controllers.GetService)
			catalog.PUT("/:id", controllers.UpdateService)
			catalog.DELETE("/:id", controllers.DeleteService)
		}

		// User administration routes
		users := api.Group("/users")
		{
			users.GET("", controllers.GetUsers)
			users.PUT("/:id/roles", controllers.UpdateUserRoles)
		}

		// Reports routes
		reportController := controllers.ReportController{}
		api.GET("/reports", reportController.GetBookingReport)
		api.GET("/reports/export", reportController.ExportBookingsCSV)

		// Dashboard routes
		api.GET("/dashboard", controllers.GetDashboardOverview)
	}

	return r
}
