package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guardline/guardline/config"
	"github.com/guardline/guardline/internal/assessment"
)

// assessCMD rates a situation from the command line using the same rule
// table the service uses. Needs no credentials, so it skips full config
// validation.
func assessCMD() *cobra.Command {
	var location string
	var situationContext string

	var assess = &cobra.Command{
		Use:   "assess [situation description]",
		Short: "Rate the risk level of a situation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := assessment.NewEngine(config.DefaultImminentKeywords, config.DefaultElevatedKeywords)
			result, err := engine.Assess(assessment.Situation{
				Narrative: strings.Join(args, " "),
				Location:  location,
				Context:   situationContext,
			})
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	assess.Flags().StringVar(&location, "location", "", "where the situation is occurring")
	assess.Flags().StringVar(&situationContext, "context", "", "additional context")

	return assess
}
