package main

import "github.com/Aurracloud/agentic-x402/internal/cli"

func main() {
	cli.Execute()
}
