package main

import "github.com/vibast-solutions/ms-go-desk-lookup/cmd"

func main() {
	cmd.Execute()
}
