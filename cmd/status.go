package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	c := &cobra.Command{
		Use:   "status",
		Short: "Print the daemon's current status document",
		RunE:  runStatus,
	}
	Root.AddCommand(c)
}

func runStatus(cmd *cobra.Command, args []string) error {
	resp, err := sendCommand(baseDir(cmd), "STATUS")
	if err != nil {
		return err
	}
	if strings.HasPrefix(resp, "ERROR") {
		return fmt.Errorf("%s", strings.TrimSpace(resp))
	}
	fmt.Print(resp)
	return nil
}
