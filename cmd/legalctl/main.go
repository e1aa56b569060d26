package main

import "legal-assistant/internal/cli"

func main() {
	cli.Execute()
}
