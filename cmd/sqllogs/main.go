package main

import "github.com/vietddude/sqllogs/internal/cli"

func main() {
	cli.Execute()
}
