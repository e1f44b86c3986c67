package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/dgarske/uart-monitor/internal/identity"
)

var groupHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("cyan")).
	MarginTop(1)

func init() {
	c := &cobra.Command{
		Use:   "identify",
		Short: "Scan USB-serial ttys and report their identified boards",
		RunE:  runIdentify,
	}
	c.Flags().BoolP("verbose", "v", false, "include VID:PID, serial, and USB path in the report")
	c.Flags().Bool("save", false, "append ports without a board override to the board-override file as editable stubs")
	Root.AddCommand(c)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	save, _ := cmd.Flags().GetBool("save")

	overrides, err := identity.LoadOverrides(overridePath())
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}

	ports, err := identity.Scan(overrides)
	if err != nil {
		return fmt.Errorf("scan ttys: %w", err)
	}

	groups := identity.GroupPorts(ports)
	for _, g := range groups {
		first := g.Ports[0]
		name := "Unknown device"
		if first.Known != nil {
			name = first.Known.Name
		}
		fmt.Println(groupHeaderStyle.Render(fmt.Sprintf("%s (%s)", name, first.USBPath)))

		cols := []string{"DEV", "LABEL", "BOARD"}
		if verbose {
			cols = append(cols, "VID", "PID", "SERIAL", "IFACE")
		}
		tbl := table.New(toInterfaceSlice(cols)...)
		for _, p := range g.Ports {
			board := p.BoardOverride
			if board == "" {
				board = "unassigned"
			}
			row := []interface{}{p.DevPath, p.Label, board}
			if verbose {
				row = append(row, fmt.Sprintf("%04x", p.VID), fmt.Sprintf("%04x", p.PID), p.SerialString, p.InterfaceIndex)
			}
			tbl.AddRow(row...)
		}
		tbl.Print()
	}

	if save {
		if err := appendOverrideStubs(overridePath(), ports); err != nil {
			return fmt.Errorf("save overrides: %w", err)
		}
	}
	return nil
}

// toInterfaceSlice adapts a []string to the []interface{} table.New wants
// for its variadic column headers.
func toInterfaceSlice(cols []string) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// appendOverrideStubs appends an editable "# === <board> ===" / "# USB: ...
// S/N: ..." stanza for every identified port that doesn't already have a
// board override, so the user can fill in the real board name by hand.
func appendOverrideStubs(path string, ports []identity.Port) error {
	var b strings.Builder
	wrote := false
	for _, p := range ports {
		if p.BoardOverride != "" {
			continue
		}
		name := "TODO"
		if p.Known != nil && len(p.Known.CandidateBoards) > 0 {
			name = p.Known.CandidateBoards[0]
		}
		fmt.Fprintf(&b, "\n# === %s ===\n# USB: %s  S/N: %s\n", name, p.Product, p.SerialString)
		wrote = true
	}
	if !wrote {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}
