package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"accounts-backend/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
