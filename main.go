package main

import (
	"github.com/joho/godotenv"

	"sjsage522/lotteryworker/internal/cli"
	"sjsage522/lotteryworker/logger"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	cli.Execute()
}
