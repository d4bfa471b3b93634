package portctl

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"portmonitor/internal/status"
)

func newColorsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "colors",
		Short: "Show the status color palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, body, err := opts.get(cmd.Context(), "/api/colors")
			if err != nil {
				return err
			}
			if code != http.StatusOK {
				return fmt.Errorf("portmonitor returned status %d", code)
			}

			var colors map[string]string
			if err := decodeJSON(body, &colors); err != nil {
				return err
			}
			return renderColors(cmd.OutOrStdout(), colors)
		},
	}
}

// paletteOrder lists known categories first, in canonical order, then any
// names the server added.
func paletteOrder(colors map[string]string) []string {
	out := make([]string, 0, len(colors))
	seen := make(map[string]struct{}, len(colors))
	for _, c := range status.Categories() {
		if _, ok := colors[string(c)]; ok {
			out = append(out, string(c))
			seen[string(c)] = struct{}{}
		}
	}
	var extra []string
	for name := range colors {
		if _, ok := seen[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func renderColors(w io.Writer, colors map[string]string) error {
	name := lipgloss.NewStyle().Width(16)
	for _, n := range paletteOrder(colors) {
		hex := colors[n]
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■■")
		if _, err := fmt.Fprintf(w, "%s %s %s\n", swatch, name.Render(n), hex); err != nil {
			return err
		}
	}
	return nil
}
