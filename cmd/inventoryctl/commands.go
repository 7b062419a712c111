package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stockroom/internal/client"
	"stockroom/internal/domain"
	"stockroom/internal/report"
	"stockroom/internal/store"
)

var errInfeasible = errors.New("production run is not feasible")

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("STOCKROOM")
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "inventoryctl",
		Short:         "Inspect and manage stockroom inventory from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String("server", "http://127.0.0.1:8080", "API base URL (STOCKROOM_SERVER)")
	flags.String("token", "", "access token (STOCKROOM_TOKEN)")
	flags.String("username", "", "log in with this user when no token is set (STOCKROOM_USERNAME)")
	flags.String("password", "", "password for --username (STOCKROOM_PASSWORD)")
	for _, name := range []string{"server", "token", "username", "password"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newLoginCmd(v),
		newListCmd(v),
		newGetCmd(v),
		newDeleteCmd(v),
		newCheckProductionCmd(v),
		newDashboardCmd(v),
		newReportCmd(v),
	)
	return root
}

// connect returns a client that already carries a token.
func connect(cmd *cobra.Command, v *viper.Viper) (*client.Client, error) {
	c := client.New(v.GetString("server"))
	if token := v.GetString("token"); token != "" {
		c.SetToken(token)
		return c, nil
	}
	username := v.GetString("username")
	if username == "" {
		return nil, errors.New("not logged in: pass --token or --username/--password")
	}
	if _, err := c.Login(cmd.Context(), username, v.GetString("password")); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

func newLoginCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Print an access token for --username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := client.New(v.GetString("server"))
			resp, err := c.Login(cmd.Context(), v.GetString("username"), v.GetString("password"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.AccessToken)
			return nil
		},
	}
}

func newListCmd(v *viper.Viper) *cobra.Command {
	var (
		page     int
		size     int
		product  string
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List one page of " + strings.Join(entityNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			c, err := connect(cmd, v)
			if err != nil {
				return err
			}
			ops, err := lookupEntity(args[0], c, filters{productID: product, window: window})
			if err != nil {
				return err
			}
			rows, err := ops.list(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page number")
	cmd.Flags().IntVar(&size, "page-size", store.DefaultPageSize, "rows per page")
	cmd.Flags().StringVar(&product, "product-id", "", "recipes only: filter by product")
	cmd.Flags().StringVar(&from, "from", "", "sales and production-logs: start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "sales and production-logs: end, a date is inclusive")
	return cmd
}

func newGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <entity> <id>",
		Short: "Show one row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd, v)
			if err != nil {
				return err
			}
			ops, err := lookupEntity(args[0], c, filters{})
			if err != nil {
				return err
			}
			row, err := ops.get(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), row)
		},
	}
}

func newDeleteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete one row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd, v)
			if err != nil {
				return err
			}
			ops, err := lookupEntity(args[0], c, filters{})
			if err != nil {
				return err
			}
			if err := ops.remove(cmd.Context(), args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", args[0], args[1])
			return nil
		},
	}
}

func newCheckProductionCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check-production <product-id> <quantity>",
		Short: "Check whether stock covers a production run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}
			c, err := connect(cmd, v)
			if err != nil {
				return err
			}
			plan, err := c.CheckProduction(cmd.Context(), domain.ProductionCheckRequest{ProductID: args[0], QuantityProduced: qty})
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), plan); err != nil {
				return err
			}
			if !plan.Feasible {
				return errInfeasible
			}
			return nil
		},
	}
}

func newDashboardCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show headline counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := connect(cmd, v)
			if err != nil {
				return err
			}
			stats, err := c.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newReportCmd(v *viper.Viper) *cobra.Command {
	var from, to, format, output string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Revenue, cost and profit summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			c, err := connect(cmd, v)
			if err != nil {
				return err
			}

			format = strings.ToLower(format)
			if format == report.FormatJSON {
				summary, err := c.Report(cmd.Context(), window)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return c.DownloadReport(cmd.Context(), window, format, out)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end, a date is inclusive")
	cmd.Flags().StringVar(&format, "format", report.FormatJSON, "json, csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the export to this file")
	return cmd
}

// parseWindow reads the --from/--to flags in the local zone.
func parseWindow(from string, to string) (store.TimeRange, error) {
	var window store.TimeRange
	var err error
	if window.From, _, err = parseInstant(from); err != nil {
		return window, fmt.Errorf("--from: %w", err)
	}
	var dateOnly bool
	if window.To, dateOnly, err = parseInstant(to); err != nil {
		return window, fmt.Errorf("--to: %w", err)
	}
	if dateOnly {
		window.To = window.To.AddDate(0, 0, 1)
	}
	return window, nil
}

func parseInstant(raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("want RFC3339 or YYYY-MM-DD, got %q", raw)
	}
	return t, true, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
