/*
Copyright © 2025 tieubaoca
*/
package main

import (
	"github.com/joho/godotenv"
	"github.com/tieubaoca/contract-analyzer/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	// .env is optional; secrets may come from the real environment.
	godotenv.Load()
}
