package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/services/landmarks"
	"github.com/ternarybob/vestigo/internal/services/validation"
	"github.com/ternarybob/vestigo/internal/storage/badger"
	"github.com/ternarybob/vestigo/internal/storage/pinecone"
)

func main() {
	configPath := os.Getenv("VESTIGO_CONFIG")
	if configPath == "" {
		configPath = "vestigo.toml"
	}

	var configFiles []string
	if _, err := os.Stat(configPath); err == nil {
		configFiles = append(configFiles, configPath)
	}
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// console-only warn logger so stdio stays clean for the protocol
	logger := arbor.NewLogger().WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:             arbormodels.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	storageManager, err := badger.NewManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer storageManager.Close()
	kv := storageManager.KeyValueStorage()

	pineconeKey, err := common.ResolveAPIKey(kv, "pinecone", config.Pinecone.APIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("Pinecone API key not resolved; vector tools will fail")
	}
	vectorStorage := pinecone.NewClient(config.Pinecone, pineconeKey, logger)

	landmarkService := landmarks.NewService(config.Landmarks, kv, logger)
	validator := validation.NewValidator(logger)

	mcpServer := server.NewMCPServer(
		"vestigo",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createSearchLandmarksTool(), handleSearchLandmarks(landmarkService, logger))
	mcpServer.AddTool(createGetLandmarkTool(), handleGetLandmark(landmarkService, logger))
	mcpServer.AddTool(createValidateVectorTool(), handleValidateVector(vectorStorage, validator, logger))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
