package main

import (
	"context"

	"github.com/budwatch/backend/cmd/dealctl/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
