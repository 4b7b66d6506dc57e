package main

import "github.com/alejoacosta74/coinbase-api/cmd"

func main() {
	cmd.Execute()
}
