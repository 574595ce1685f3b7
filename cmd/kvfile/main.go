/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"os"

	"github.com/ssargent/kvfile/cmd/kvfile/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
