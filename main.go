package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Fb1234566/TrentOnBike-api/config"
	"github.com/Fb1234566/TrentOnBike-api/database"
	"github.com/Fb1234566/TrentOnBike-api/handlers"
	"github.com/Fb1234566/TrentOnBike-api/middleware"
	"github.com/Fb1234566/TrentOnBike-api/utils"
	"github.com/Fb1234566/TrentOnBike-api/version"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const (
	EndPointHealth           = "/health"
	EndPointAuth             = "/auth"
	EndPointSegnalazioni     = "/segnalazioni"
	EndPointGruppi           = "/gruppiSegnalazioni"
	EndPointGlobalTimestamps = "/globalTimestamps"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Info("Starting the segnalazioni service...")

	// Connect to database
	db, err := utils.DBConnect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Initialize services
	reportsService := database.NewReportsService(db)
	groupsService := database.NewGroupsService(db)
	timestampsService := database.NewTimestampsService(db)
	usersService := database.NewUsersService(db, cfg.JWTSecret)

	// Seed the global change-notification timestamps
	if err := timestampsService.Init(context.Background()); err != nil {
		log.Fatalf("Failed to initialize global timestamps: %v", err)
	}

	// Initialize handlers
	segnalazioniHandler := handlers.NewSegnalazioniHandler(reportsService, groupsService)
	gruppiHandler := handlers.NewGruppiHandler(groupsService)
	timestampsHandler := handlers.NewTimestampsHandler(timestampsService)
	authHandler := handlers.NewAuthHandler(usersService)

	// Setup router
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, version.Get("trentonbike-api"))
	})
	router.GET(EndPointHealth, handlers.HealthCheck)

	authn := middleware.AuthMiddleware(cfg.JWTSecret)
	utente := middleware.RequireRuolo("utente")
	operatore := middleware.RequireRuolo("operatore")
	operatoreOAdmin := middleware.RequireRuolo("operatore", "admin")

	apiV1 := router.Group("/api/v1")
	{
		auth := apiV1.Group(EndPointAuth)
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		segnalazioni := apiV1.Group(EndPointSegnalazioni, authn)
		{
			segnalazioni.POST("", utente, segnalazioniHandler.Create)
			segnalazioni.GET("/mie", utente, segnalazioniHandler.ListMine)
			segnalazioni.GET("", operatoreOAdmin, segnalazioniHandler.List)
			segnalazioni.GET("/:id", operatoreOAdmin, segnalazioniHandler.Get)
			segnalazioni.PATCH("/:id/commento", operatore, segnalazioniHandler.SetCommento)
			segnalazioni.PATCH("/:id/stato", operatore, segnalazioniHandler.SetStato)
			segnalazioni.PATCH("/:id/lettura", operatore, segnalazioniHandler.MarkRead)
			segnalazioni.PATCH("/:id/gruppoSegnalazioni", operatore, segnalazioniHandler.SetGruppo)
		}

		gruppi := apiV1.Group(EndPointGruppi, authn)
		{
			gruppi.POST("", operatore, gruppiHandler.Create)
			gruppi.GET("", operatoreOAdmin, gruppiHandler.List)
			gruppi.GET("/:id", operatoreOAdmin, gruppiHandler.Get)
			gruppi.PATCH("/:id/nome", operatore, gruppiHandler.Rename)
			gruppi.DELETE("/:id", operatore, gruppiHandler.Delete)
		}

		apiV1.GET(EndPointGlobalTimestamps+"/:key", authn, operatoreOAdmin, timestampsHandler.Get)
	}

	// Get server port from config
	serverPort, err := strconv.Atoi(cfg.Port)
	if err != nil {
		log.Fatalf("Invalid PORT configuration: %v", err)
	}

	// Start server
	log.Infof("Segnalazioni service starting on port %d", serverPort)
	if err := router.Run(fmt.Sprintf(":%d", serverPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
