package main

import (
	"context"
	"fmt"
	"os"

	"github.com/seantiz/snakebridge/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "snakebridge:", err)
		os.Exit(1)
	}
}
