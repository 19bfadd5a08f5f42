/*
Copyright © 2025 edumate-ai
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/edumate-ai/tutor-be/config"
	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/handler"
	"github.com/edumate-ai/tutor-be/middleware"
	"github.com/edumate-ai/tutor-be/repository"
	"github.com/edumate-ai/tutor-be/service"
)

// startServerCmd represents the startServer command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ingestion server",
	Long:  `Starts the HTTP server that handles document ingestion and search`,
	Run: func(cmd *cobra.Command, args []string) {

		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		aiService, err := newAIService(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize AI service: %v", err)
		}

		// The vector mirror is optional; without a host the pipelines
		// simply skip mirroring.
		var vectorDB database.VectorDatabase
		if cfg.WeaviateStoreConfig.Host != "" {
			weaviateDb, err := database.NewWeaviateStore(cfg.WeaviateStoreConfig)
			if err != nil {
				log.Fatalf("Failed to connect to Weaviate database: %v", err)
			}
			vectorDB = weaviateDb
		}

		mongoClient, err := database.NewMongoClient(context.Background(), cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		mongoDb := mongoClient.Database(cfg.MongoDatabase)

		//init repo
		userRepo := repository.NewUserRepo(mongoDb.Collection("users"))
		documentRepo := repository.NewDocumentRepo(mongoDb.Collection("documents"))
		chunkRepo := repository.NewChunkRepo(mongoDb.Collection("lecture_chunks"))
		questionRepo := repository.NewQuestionRepo(mongoDb.Collection("exam_questions"))
		assignmentRepo := repository.NewAssignmentRepo(mongoDb.Collection("assignment_items"))

		//init service
		userService := service.NewUserService(userRepo)
		ingestService := service.NewIngestService(
			aiService,
			documentRepo,
			chunkRepo,
			questionRepo,
			assignmentRepo,
			vectorDB,
			cfg.Ingest,
		)
		wsService := service.NewWebSocketService(ingestService)

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		loginHandler := handler.NewLoginHandler(userService)
		documentHandler := handler.NewDocumentHandler(documentRepo, vectorDB)
		ingestHandler := handler.NewIngestHandler(ingestService)
		searchHandler := handler.NewSearchHandler(vectorDB)

		// Setup Gin router
		router := gin.Default()

		// Apply global middleware
		router.Use(corsHandler.CorsMiddleware)

		apiV1 := router.Group("/api/v1")
		apiV1.POST("/login", loginHandler.HandleLogin)
		apiV1.GET("/health", gin.WrapH(wsService.Health()))

		// Admin routes - require admin authentication
		adminRoutes := router.Group("/admin/api/v1")
		adminRoutes.Use(middleware.AdminAuthMiddleware)
		{
			adminRoutes.POST("/documents/create", documentHandler.HandleCreateDocument)
			adminRoutes.GET("/documents/get", documentHandler.HandleGetDocument)
			adminRoutes.POST("/documents/delete", documentHandler.HandleDeleteDocument)
			adminRoutes.POST("/ingest", ingestHandler.IngestDocumentHandler)
			adminRoutes.GET("/ingest/ws", func(c *gin.Context) {
				wsService.HandleIngest(c.Writer, c.Request)
			})
			if vectorDB != nil {
				adminRoutes.POST("/search", searchHandler.HandleSearch)
			}
		}

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

// newAIService picks the LLM provider from config.
func newAIService(cfg *config.Config) (service.AIService, error) {
	switch cfg.AIProvider {
	case "openai":
		return service.NewOpenAIService(cfg.AIEndpoint, cfg.OpenAIAPIKey, cfg.Model, cfg.EmbeddingModel), nil
	case "gemini":
		return service.NewGeminiService(cfg.GeminiAPIKeys, cfg.Model, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("unknown ai provider: %q", cfg.AIProvider)
	}
}

func init() {
	rootCmd.AddCommand(startServerCmd)
	startServerCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
}
