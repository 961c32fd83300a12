package main

import (
	"context"
	"os"

	"github.com/siyuan-infoblox/css-imports/pkg/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
