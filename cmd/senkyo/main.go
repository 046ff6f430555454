package main

import (
	"senkyo/cmd/cmd"
	"senkyo/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	cmd.Execute()
}
