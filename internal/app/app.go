package app

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

func resolvePort(primaryEnv, legacyEnv string, fallback int) int {
	if port := readPort(primaryEnv); port != 0 {
		return port
	}
	if port := readPort(legacyEnv); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}

func resolveHost(envKey, fallback string) string {
	if host := strings.TrimSpace(os.Getenv(envKey)); host != "" {
		return host
	}
	return fallback
}
