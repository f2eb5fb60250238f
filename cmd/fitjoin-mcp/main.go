package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	fjmcp "github.com/meltforce/fitjoin/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "fitjoin server URL (e.g. https://fitjoin.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("FITJOIN_API_KEY"), "API key for the fitjoin server")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fitjoin-mcp", Version)
		return
	}

	// stdout carries the protocol
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: fitjoin-mcp -server <URL> [-api-key KEY]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	client := fjmcp.NewHTTPClient(strings.TrimRight(*serverURL, "/"), *apiKey)
	s := fjmcp.New(client, Version, log)

	log.Info("fitjoin-mcp serving stdio", "server", *serverURL)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}
