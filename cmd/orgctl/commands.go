package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gabrielgalarza/orgmapper/internal/codec"
)

const appName = "orgctl"

// Version is overridden at build time.
var Version = "dev"

func rootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Manage saved organization charts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log storage activity")

	withSession := func(fn func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := openSession(ctx, verbose)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := s.Close(ctx); cerr != nil && err == nil {
					err = cerr
				}
			}()
			return fn(ctx, s, cmd, args)
		}
	}

	cmd.AddCommand(orgsCmd(withSession))
	cmd.AddCommand(exportCmd(withSession))
	cmd.AddCommand(importCmd(withSession))
	cmd.AddCommand(shareCmd(withSession))
	cmd.AddCommand(openCmd(withSession))
	cmd.AddCommand(resetCmd(withSession))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

type sessionRunner func(fn func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error

func orgsCmd(run sessionRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "List and manage organizations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List organizations; the current one is marked with *",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			currentID := s.svc.Current().ID
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tNAME\tUPDATED")
			for _, record := range s.svc.ListOrganizations() {
				marker := ""
				if record.ID == currentID {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, record.ID, record.Name, record.UpdatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty organization and switch to it",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			record, err := s.svc.CreateOrganization(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", record.Name, record.ID)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "switch ID",
		Short: "Make an organization current",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			record, err := s.svc.SwitchOrganization(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "switched to %s\n", record.Name)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename an organization",
		Args:  cobra.MinimumNArgs(2),
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			record, err := s.svc.RenameOrganization(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", record.ID, record.Name)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete an organization",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			if err := s.svc.DeleteOrganization(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	})

	return cmd
}

func exportCmd(run sessionRunner) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current organization to a file",
		Long: `Write the current organization as pretty-printed JSON or YAML.
Without --out the file is named after the organization; "-" writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			f, err := codec.ParseFormat(format)
			if err != nil {
				return err
			}
			filename, data, err := s.svc.ExportFile(f)
			if err != nil {
				return err
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if out == "" {
				out = filename
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", out)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "File format (json, yaml)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path, or - for stdout")
	return cmd
}

func importCmd(run sessionRunner) *cobra.Command {
	var name, format string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a file as a new organization",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			path := args[0]
			var data []byte
			var err error
			if path == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(path)
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			f := codec.FormatFromFilename(path)
			if format != "" {
				if f, err = codec.ParseFormat(format); err != nil {
					return err
				}
			}
			if name == "" && path != "-" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			record, err := s.svc.ImportFile(ctx, name, data, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s)\n", record.Name, record.ID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Organization name (defaults to the file name)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "File format (json, yaml); detected from the extension when empty")
	return cmd
}

func shareCmd(run sessionRunner) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print a share link for the current organization",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			if base == "" {
				base = s.cfg.Share.BaseURL
			}
			link, err := s.svc.ShareURL(base)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		}),
	}
	cmd.Flags().StringVar(&base, "base", "", "Base URL for the link (defaults to SHARE_BASE_URL)")
	return cmd
}

func openCmd(run sessionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "open URL",
		Short: "Save the organization carried by a share link",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			u, err := url.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("parse share link: %w", err)
			}
			record, ok, err := s.svc.IngestShare(ctx, u.Query())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("link has no %q parameter", codec.ParamDocument)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", record.Name, record.ID)
			return nil
		}),
	}
}

func resetCmd(run sessionRunner) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every organization and start over",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all organizations; pass --yes to confirm")
			}
			record := s.svc.Reset(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "reset; current organization is %s (%s)\n", record.Name, record.ID)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
