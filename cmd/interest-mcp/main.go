package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mewlark/interest-bridge/internal/mcpserver"
)

func main() {
	baseURL := os.Getenv("BRIDGE_API_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:9876"
	}

	fmt.Fprintf(os.Stderr, "[MCP] Connecting to bridge at %s\n", baseURL)

	srv := mcpserver.NewServer(baseURL)
	if err := srv.Run(context.Background()); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
