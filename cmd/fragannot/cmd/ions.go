package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/fragannot/pkg/ions"
	"github.com/ChrisMcGann/fragannot/pkg/match"
)

var ionsCmd = &cobra.Command{
	Use:   "ions",
	Short: "List supported ion types and neutral losses",
	Long: `Print the ion-cap table (terminus, elemental composition and mass shift
relative to the free peptide) and the neutral losses available to --losses.

With --equivalences, also list the internal ion types that share an elemental
composition with another pair and are therefore reported under that pair's name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := ions.NewRegistry()

		fmt.Printf("%-6s %-10s %-12s %12s\n", "Ion", "Terminus", "Composition", "Delta mass")
		for _, c := range reg.All() {
			fmt.Printf("%-6s %-10s %-12s %12.6f\n", c.Name, c.Direction, c.Composition, c.DeltaMass)
		}

		fmt.Printf("\nNeutral losses:\n")
		table := match.DefaultLosses()
		for _, name := range table.Names() {
			fmt.Printf("  %-8s %12.6f\n", name, table[name])
		}

		if showEquivalences {
			eq := reg.Equivalences()
			fmt.Printf("\nInternal ion equivalences (%d):\n", len(eq))
			for _, e := range eq {
				fmt.Printf("  %-8s -> %-8s %s\n", e.From, e.To, e.Composition)
			}
		}
		return nil
	},
}
