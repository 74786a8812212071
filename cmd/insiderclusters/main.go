package main

import "github.com/yourdesigncoza/get-insider-db/internal/cli"

func main() {
	cli.Execute()
}
