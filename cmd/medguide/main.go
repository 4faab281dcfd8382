package main

import (
	"context"

	"github.com/medguideai/medguide/cmd/medguide/cmd"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd.Execute(ctx)
}
