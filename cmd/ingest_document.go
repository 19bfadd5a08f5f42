/*
Copyright © 2025 edumate-ai
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/edumate-ai/tutor-be/config"
	"github.com/edumate-ai/tutor-be/database"
	"github.com/edumate-ai/tutor-be/repository"
	"github.com/edumate-ai/tutor-be/service"
	"github.com/edumate-ai/tutor-be/types"
)

// ingestDocumentCmd represents the ingestDocument command
var ingestDocumentCmd = &cobra.Command{
	Use:   "ingest-document",
	Short: "Run the ingestion pipeline on a pages file",
	Long: `Reads pre-extracted page text from a JSON file and runs the full
ingestion pipeline against the configured stores. Events are printed to
stdout as JSON lines, one per event.

The pages file is a JSON array of {"page": 1, "text": "..."} objects.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		filePath, _ := cmd.Flags().GetString("file")
		documentID, _ := cmd.Flags().GetString("document-id")
		kind, _ := cmd.Flags().GetString("kind")
		title, _ := cmd.Flags().GetString("title")
		subject, _ := cmd.Flags().GetString("subject")

		if filePath == "" || documentID == "" {
			log.Fatal("--file and --document-id are required")
		}

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatalf("Failed to read pages file: %v", err)
		}
		var pages []types.PageContent
		if err := json.Unmarshal(data, &pages); err != nil {
			log.Fatalf("Failed to parse pages file: %v", err)
		}

		aiService, err := newAIService(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize AI service: %v", err)
		}

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

		ingestService := service.NewIngestService(
			aiService,
			repository.NewDocumentRepo(mongoDb.Collection("documents")),
			repository.NewChunkRepo(mongoDb.Collection("lecture_chunks")),
			repository.NewQuestionRepo(mongoDb.Collection("exam_questions")),
			repository.NewAssignmentRepo(mongoDb.Collection("assignment_items")),
			vectorDB,
			cfg.Ingest,
		)

		req := types.IngestRequest{
			DocumentID: documentID,
			Kind:       kind,
			Title:      title,
			Subject:    subject,
			Pages:      pages,
		}
		err = ingestService.Ingest(context.Background(), req, func(event types.IngestEvent) {
			line, err := json.Marshal(event)
			if err != nil {
				return
			}
			fmt.Println(string(line))
		})
		if err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestDocumentCmd)

	ingestDocumentCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
	ingestDocumentCmd.Flags().StringP("file", "f", "", "Path to the pages JSON file")
	ingestDocumentCmd.Flags().StringP("document-id", "d", "", "ID of the document to attach items to")
	ingestDocumentCmd.Flags().StringP("kind", "k", types.DocumentKindLecture, "Document kind: lecture, exam or assignment")
	ingestDocumentCmd.Flags().StringP("title", "t", "", "Document title")
	ingestDocumentCmd.Flags().StringP("subject", "s", "", "Document subject")
}
