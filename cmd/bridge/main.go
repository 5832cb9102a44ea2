package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mewlark/interest-bridge/internal/api"
	"github.com/mewlark/interest-bridge/internal/biz/usecase"
	"github.com/mewlark/interest-bridge/internal/conf"
	"github.com/mewlark/interest-bridge/internal/data"
	"github.com/mewlark/interest-bridge/internal/infra/feishu"
	"github.com/mewlark/interest-bridge/internal/server"
	"github.com/mewlark/interest-bridge/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// History store
	historyStore := data.NewHistoryStore(cfg.History.Path, cfg.History.MaxLength)
	if err := historyStore.Restore(); err != nil {
		// A corrupt document starts the bridge with empty history
		fmt.Printf("[Bridge] Failed to restore history: %v\n", err)
	}
	fmt.Printf("[Bridge] History document: %s (max %d turns per session)\n", cfg.History.Path, cfg.History.MaxLength)

	// Persona binding store
	personaStore, err := data.NewPersonaStore(cfg.Persona.DBPath, cfg.Prompts.PersonaMap())
	if err != nil {
		log.Fatalf("Failed to open persona store: %v", err)
	}
	fmt.Printf("[Bridge] Persona DB: %s\n", cfg.Persona.DBPath)

	// Providers
	classifier := data.NewClassifierRepo(cfg.Analysis.APIKey, cfg.Analysis.BaseURL, cfg.Analysis.Model)
	if classifier != nil {
		fmt.Println("[Bridge] Interest analysis enabled")
	} else {
		fmt.Println("[Bridge] No analysis provider configured, messages pass through unfiltered")
	}
	responder := data.NewResponderRepo(cfg.Responder.APIKey, cfg.Responder.BaseURL, cfg.Responder.Model)
	if responder == nil {
		fmt.Println("[Bridge] No responder configured, replies disabled")
	}

	// Usecase layer
	analyzer := usecase.NewInterestAnalyzer(historyStore, classifier, personaStore, cfg.Prompts, usecase.AnalyzerOptions{
		Whitelist:   cfg.Whitelist,
		ReplyChance: cfg.RandomReplyChance,
		Debug:       cfg.Debug,
	})
	recorder := usecase.NewReplyRecorder(historyStore, cfg.Whitelist, cfg.RecordEmotionInHistory)
	admin := usecase.NewAdminView(historyStore)

	// Service layer
	systemPrompt := ""
	if personas := cfg.Prompts.PersonaMap(); len(personas) > 0 {
		systemPrompt = personas["default"]
	}
	pipeline := service.NewPipelineService(analyzer, recorder, admin, responder, personaStore, systemPrompt)

	// Feishu transport
	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
	srv := server.NewFeishuServer(feishuClient, pipeline)

	// HTTP API server for interest-mcp and operators
	apiServer := api.NewServer(historyStore, admin, personaStore, cfg.APIPort)
	go func() {
		if err := apiServer.Start(); err != nil {
			fmt.Printf("[Bridge] API server error: %v\n", err)
		}
	}()

	// Graceful shutdown: flush history before exit
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		if err := historyStore.Persist(); err != nil {
			fmt.Printf("[Bridge] Failed to persist history: %v\n", err)
		}
		srv.Stop()
		apiServer.Stop()
		personaStore.Close()
		os.Exit(0)
	}()

	fmt.Println("Starting Interest Bridge...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
