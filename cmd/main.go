package main

import (
	"os"

	"github.com/yungbote/devjourney-backend/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
