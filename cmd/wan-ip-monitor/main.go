package main

import (
	"essops/internal/app"

	"github.com/charmbracelet/log"
)

func main() {
	if err := app.RunMonitor(); err != nil {
		log.Fatal("wan-ip monitor terminated", "error", err)
	}
}
