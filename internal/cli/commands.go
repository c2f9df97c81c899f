package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"subway-network/internal/network"
	"subway-network/internal/routing"
	"subway-network/internal/seed"
	"subway-network/internal/subway"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load stations and lines from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			sum, err := seed.Apply(cmd.Context(), rt.manager(nil), f, rt.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stations created: %d\nlines created: %d\nsections added: %d\nlines skipped: %d\n",
				sum.StationsCreated, sum.LinesCreated, sum.SectionsAdded, sum.LinesSkipped)
			return nil
		},
	}
}

func pathCmd() *cobra.Command {
	var format string

	c := &cobra.Command{
		Use:   "path SOURCE TARGET",
		Short: "Print the shortest route between two stations (by id or name)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			m := rt.manager(nil)
			source, err := resolveStation(cmd.Context(), m, args[0])
			if err != nil {
				return err
			}
			target, err := resolveStation(cmd.Context(), m, args[1])
			if err != nil {
				return err
			}
			res, err := m.FindPath(cmd.Context(), source, target)
			if err != nil {
				return err
			}
			return printPath(cmd.OutOrStdout(), res, format)
		},
	}

	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func linesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lines",
		Short: "List lines with their stations in route order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			lines, err := rt.manager(nil).Lines(cmd.Context())
			if err != nil {
				return err
			}
			return printLines(cmd.OutOrStdout(), lines)
		},
	}
}

// resolveStation accepts a numeric id or an exact station name.
func resolveStation(ctx context.Context, m *network.Manager, arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, nil
	}
	stations, err := m.Stations(ctx)
	if err != nil {
		return 0, err
	}
	name := strings.TrimSpace(arg)
	for _, st := range stations {
		if st.Name == name {
			return st.ID, nil
		}
	}
	return 0, subway.Errorf("cli.station", subway.KindStationNotFound, "no station named %q", name)
}

func printPath(w io.Writer, res routing.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Stations []subway.Station `json:"stations"`
			Distance int              `json:"distance"`
		}{res.Stations, res.Distance})
	case "pretty", "":
		names := make([]string, 0, len(res.Stations))
		for _, st := range res.Stations {
			names = append(names, st.Name)
		}
		_, err := fmt.Fprintf(w, "%s\ndistance: %d\n", strings.Join(names, " -> "), res.Distance)
		return err
	}
	return fmt.Errorf("unknown format %q (want pretty or json)", format)
}

func printLines(w io.Writer, lines []subway.Line) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tDISTANCE\tSTATIONS")
	for _, l := range lines {
		names := make([]string, 0, l.Sections.Len()+1)
		for _, st := range l.Sections.Stations() {
			names = append(names, st.Name)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", l.ID, l.Name, l.Color, l.Sections.TotalDistance(), strings.Join(names, " - "))
	}
	return tw.Flush()
}
