package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/obligation-finder/internal/model"
)

var yearsCmd = &cobra.Command{
	Use:   "years",
	Short: "List the selectable fiscal years",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		def := model.FiscalYear(cfg.Years.Default)
		for _, y := range yearRange(cfg).Years() {
			mark := ""
			if y == def {
				mark = " (default)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", y, mark)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(yearsCmd)
}
