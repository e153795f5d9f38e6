package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize <merchant> [description...]",
	Short: "Show the category a merchant and description map to",
	Args:  cobra.ArbitraryArgs,
	RunE:  runCategorize,
}

func init() {
	rootCmd.AddCommand(categorizeCmd)
	categorizeCmd.Flags().Bool("list", false, "List every category instead")
}

func runCategorize(cmd *cobra.Command, args []string) error {
	list, _ := cmd.Flags().GetBool("list")
	if !list && len(args) == 0 {
		return fmt.Errorf("merchant is required unless --list is set")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if list {
		for _, c := range a.cat.Categories() {
			fmt.Fprintln(out, c)
		}
		return nil
	}

	fmt.Fprintln(out, a.cat.Categorize(strings.Join(args[1:], " "), args[0]))
	return nil
}
