package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	c := &cobra.Command{
		Use:   "yield <dev>",
		Short: "Release a port's serial descriptor without discarding its log",
		Args:  cobra.ExactArgs(1),
		RunE:  runYield,
	}
	Root.AddCommand(c)
}

func runYield(cmd *cobra.Command, args []string) error {
	resp, err := sendCommand(baseDir(cmd), "YIELD "+args[0])
	if err != nil {
		return err
	}
	fmt.Print(resp)
	if strings.HasPrefix(resp, "ERROR") {
		return fmt.Errorf("yield failed")
	}
	return nil
}
