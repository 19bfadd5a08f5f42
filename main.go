/*
Copyright © 2025 edumate-ai
*/
package main

import (
	"github.com/joho/godotenv"
	"github.com/edumate-ai/tutor-be/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	// A missing .env file is fine in deployed environments where the
	// variables are injected directly.
	_ = godotenv.Load()
}
