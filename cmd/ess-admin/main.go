package main

import (
	"essops/internal/app"

	"github.com/charmbracelet/log"
)

func main() {
	if err := app.RunConsole(); err != nil {
		log.Fatal("admin console terminated", "error", err)
	}
}
