package main

import "github.com/mvp-joe/hackdecl/internal/cli"

func main() {
	cli.Execute()
}
