package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medcalc/medcalc/internal/config"
	"github.com/medcalc/medcalc/internal/domain/fhirdata"
	"github.com/medcalc/medcalc/internal/domain/securitylabel"
	"github.com/medcalc/medcalc/internal/platform/db"
	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// withApp loads the configuration, builds the services with logs on
// stderr, and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	logger := newLogger(os.Stderr)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// -- populate --

func populateCmd() *cobra.Command {
	var reqPath, formPath, patientID, container string
	var summary bool

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Fill a calculator form from the patient's FHIR record",
		Long: "Reads a calculator requirements file and an HTML form, populates the form's " +
			"inputs from the FHIR server and writes the rendered form to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := fhirdata.LoadRequirements(reqPath)
			if err != nil {
				return err
			}
			form, err := os.ReadFile(formPath)
			if err != nil {
				return fmt.Errorf("read form: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				client := a.clients()(patientID)
				if client == nil {
					return errors.New("FHIR_BASE_URL is not set")
				}
				resp, err := a.fhirdata.PopulateForm(ctx, client, string(form), container, req)
				if err != nil {
					return err
				}
				a.logger.Info().
					Int("loaded", len(resp.Summary.Loaded)).
					Int("missing", len(resp.Summary.Missing)).
					Int("stale", len(resp.Stale)).
					Msg("form populated")
				if summary {
					return writeJSON(cmd.OutOrStdout(), resp)
				}
				_, err = io.WriteString(cmd.OutOrStdout(), resp.Form)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&reqPath, "requirements", "r", "", "calculator requirements file (YAML or JSON)")
	cmd.Flags().StringVarP(&formPath, "form", "f", "", "HTML form to populate")
	cmd.Flags().StringVarP(&patientID, "patient", "p", "", "FHIR patient id")
	cmd.Flags().StringVar(&container, "container", "", "CSS selector of the form container (default body)")
	cmd.Flags().BoolVar(&summary, "summary", false, "print the populate result as JSON instead of the form")
	_ = cmd.MarkFlagRequired("requirements")
	_ = cmd.MarkFlagRequired("form")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

// -- audit --

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and forward locally stored audit events",
	}

	var bundle bool
	export := &cobra.Command{
		Use:   "export",
		Short: "Print pending audit events as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if bundle {
					b, err := a.audit.ExportEventsAsBundle()
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), b)
				}
				data, err := a.audit.ExportEventsAsJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			})
		},
	}
	export.Flags().BoolVar(&bundle, "bundle", false, "export as a FHIR collection Bundle")

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Forward pending audit events to AUDIT_SERVER_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.cfg.AuditServerURL == "" {
					return errors.New("AUDIT_SERVER_URL is not set")
				}
				n, err := a.audit.FlushPendingEvents(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "flushed %d events\n", n)
				return err
			})
		},
	}

	count := &cobra.Command{
		Use:   "count",
		Short: "Print the number of pending audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n, err := a.audit.GetPendingEventCount(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all locally stored audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return a.audit.ClearLocalEvents(ctx)
			})
		},
	}

	cmd.AddCommand(export, flush, count, clearCmd)
	return cmd
}

// -- security --

func securityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Security label tools",
	}

	var userID, roles, categories string
	var mask bool
	assess := &cobra.Command{
		Use:   "assess <resource.json>",
		Short: "Assess a FHIR resource's security labels for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read resource: %w", err)
			}
			r, err := fhir.ParseResource(data)
			if err != nil {
				return err
			}
			var user *securitylabel.UserContext
			if userID != "" {
				user = &securitylabel.UserContext{
					UserID:               userID,
					Roles:                splitList(roles),
					AuthorizedCategories: splitList(categories),
				}
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				assessment := a.security.AssessFor(ctx, r, user)
				if mask {
					return writeJSON(cmd.OutOrStdout(), a.security.MaskResource(ctx, r, &assessment))
				}
				return writeJSON(cmd.OutOrStdout(), assessment)
			})
		},
	}
	assess.Flags().StringVar(&userID, "user", "", "user id; empty assesses anonymously")
	assess.Flags().StringVar(&roles, "roles", "", "comma separated roles")
	assess.Flags().StringVar(&categories, "categories", "", "comma separated authorized sensitivity categories")
	assess.Flags().BoolVar(&mask, "mask", false, "print the masked resource instead of the assessment")

	cmd.AddCommand(assess)
	return cmd
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// -- provenance --

func provenanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provenance",
		Short: "Inspect locally stored provenance records",
	}

	lineage := &cobra.Command{
		Use:   "lineage <target-ref>",
		Short: "Print the lineage report of a target reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return writeJSON(cmd.OutOrStdout(), a.provenance.GenerateLineageReport(args[0]))
			})
		},
	}

	cmd.AddCommand(lineage)
	return cmd
}

// -- migrate --

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Local store migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// Open applies pending migrations.
			conn, err := db.Open(cmd.Context(), cfg.StorePath)
			if err != nil {
				return err
			}
			defer conn.Close()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			conn, err := db.Open(cmd.Context(), cfg.StorePath)
			if err != nil {
				return err
			}
			defer conn.Close()
			statuses, err := db.NewMigrator(conn).Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(out, "%s\t%s\n", s.Name, state)
			}
			return nil
		},
	}

	cmd.AddCommand(upCmd, statusCmd)
	return cmd
}
