package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/himanishpuri/SimilarityDeck/pkg/logger"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
)

var (
	port           int
	kind           string
	mediaDir       string
	allowedOrigins string
	verbose        bool
)

func init() {
	flag.IntVar(&port, "port", getEnvInt("SIMDECK_PORT", 5000), "HTTP server port")
	flag.StringVar(&kind, "kind", getEnvOrDefault("SIMDECK_KIND", string(simdeck.KindAudio)), "Backend flavour: audio or image")
	flag.StringVar(&mediaDir, "media", getEnvOrDefault("SIMDECK_MEDIA_DIR", ""), "Directory served under /static/ (optional)")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&verbose, "verbose", false, "Log every request")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func parseOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func main() {
	flag.Parse()

	if verbose {
		logger.SetLevel(logger.DEBUG)
	}

	config := &ServerConfig{
		Port:           port,
		Kind:           simdeck.Kind(strings.ToLower(strings.TrimSpace(kind))),
		MediaDir:       mediaDir,
		AllowedOrigins: parseOrigins(allowedOrigins),
		Verbose:        verbose,
	}

	server, err := NewServer(config)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
