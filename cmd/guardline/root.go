package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Local development carries credentials in a .env file; absence is fine.
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded environment from .env")
	}

	var root = &cobra.Command{Use: "guardline"}
	root.AddCommand(serveCMD(), migrateCMD(), assessCMD())
	if err := root.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
