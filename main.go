package main

import "github.com/vibast-solutions/ms-go-coinwallet/cmd"

func main() {
	cmd.Execute()
}
