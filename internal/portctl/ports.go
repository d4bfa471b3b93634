package portctl

import (
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"portmonitor/internal/ports"
)

const statusColumn = 1

func newPortsCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "ports",
		Aliases: []string{"devices", "ls"},
		Short:   "List ports and their provisioning status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, body, err := opts.get(cmd.Context(), "/api/devices")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				if _, err := out.Write(body); err != nil {
					return err
				}
				if code != http.StatusOK {
					return fmt.Errorf("portmonitor returned status %d", code)
				}
				return nil
			}

			var res ports.Result
			if err := decodeJSON(body, &res); err != nil {
				return fmt.Errorf("portmonitor returned status %d: %w", code, err)
			}
			if code != http.StatusOK {
				return fmt.Errorf("portmonitor returned status %d: %s", code, res.Message)
			}
			return renderPorts(out, res)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")

	return cmd
}

func renderPorts(w io.Writer, res ports.Result) error {
	if len(res.Ports) == 0 {
		_, err := fmt.Fprintf(w, "%s (%s)\n", res.Message, res.Timestamp)
		return err
	}

	rows := make([][]string, 0, len(res.Ports))
	for _, p := range res.Ports {
		rows = append(rows, []string{p.Port, p.StatusText, p.SerialShort, p.IPAddress, p.Image})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PORT", "STATUS", "SERIAL", "IP", "IMAGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == statusColumn && row >= 0 && row < len(res.Ports) {
				return cell.
					Bold(true).
					Foreground(lipgloss.Color("#FFFFFF")).
					Background(lipgloss.Color(res.Ports[row].Color))
			}
			return cell
		})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s (%s)\n", res.Message, res.Timestamp)
	return err
}
