package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	c := &cobra.Command{
		Use:   "reclaim <dev>",
		Short: "Resume monitoring a yielded port",
		Args:  cobra.ExactArgs(1),
		RunE:  runReclaim,
	}
	Root.AddCommand(c)
}

func runReclaim(cmd *cobra.Command, args []string) error {
	resp, err := sendCommand(baseDir(cmd), "RECLAIM "+args[0])
	if err != nil {
		return err
	}
	fmt.Print(resp)
	if strings.HasPrefix(resp, "ERROR") {
		return fmt.Errorf("reclaim failed")
	}
	return nil
}
