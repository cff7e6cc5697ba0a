package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// TargetsCmd lists the registered targets.
var TargetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List registered targets",
	Long:  "List the targets built into this binary with their engine version constraints.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry()
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			type entry struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Requires    string `json:"requires,omitempty"`
			}
			entries := []entry{}
			for _, t := range reg.Targets() {
				entries = append(entries, entry{t.Name, t.Description, t.Requires})
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		}

		data := pterm.TableData{{"NAME", "DESCRIPTION", "REQUIRES"}}
		for _, t := range reg.Targets() {
			requires := t.Requires
			if requires == "" {
				requires = "-"
			}
			data = append(data, []string{t.Name, t.Description, requires})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render(); err != nil {
			return fmt.Errorf("failed to render targets: %w", err)
		}
		return nil
	},
}

func init() {
	TargetsCmd.Flags().Bool("json", false, "Output targets as JSON")
}
