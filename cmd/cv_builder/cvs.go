package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/logging"
	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/wizard"
	"github.com/spf13/cobra"
)

var (
	cvsUserID string
	cvsID     string
)

var cvsCmd = &cobra.Command{
	Use:   "cvs",
	Short: "List, inspect or delete a user's stored CVs",
}

var cvsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's CVs, most recently updated first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, err := parseIDFlag("user", cvsUserID)
		if err != nil {
			return err
		}
		return withClient(cmd, userID, func(ctx context.Context, client *remote.Client) error {
			cvs, err := client.ListCVs(ctx, userID)
			if err != nil {
				return err
			}
			return writeCVList(cmd.OutOrStdout(), cvs)
		})
	},
}

var cvsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a CV's wizard progress and section contents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, err := parseIDFlag("user", cvsUserID)
		if err != nil {
			return err
		}
		id, err := parseIDFlag("id", cvsID)
		if err != nil {
			return err
		}
		return withClient(cmd, userID, func(ctx context.Context, client *remote.Client) error {
			rec, err := client.ReadCV(ctx, id)
			if err != nil {
				return err
			}
			p := observability.NewPrinter(cmd.OutOrStdout())
			p.PrintCV(rec)
			p.PrintSteps(wizard.BuildStatus(rec.Data, rec.CurrentStep))
			p.PrintSections(rec.Data)
			return nil
		})
	},
}

var cvsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete one of a user's CVs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, err := parseIDFlag("user", cvsUserID)
		if err != nil {
			return err
		}
		id, err := parseIDFlag("id", cvsID)
		if err != nil {
			return err
		}
		return withClient(cmd, userID, func(ctx context.Context, client *remote.Client) error {
			if err := client.DeleteCV(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		})
	},
}

func init() {
	cvsCmd.PersistentFlags().StringVarP(&cvsUserID, "user", "u", "", "Owner user ID (required)")
	_ = cvsCmd.MarkPersistentFlagRequired("user")
	for _, c := range []*cobra.Command{cvsShowCmd, cvsDeleteCmd} {
		c.Flags().StringVar(&cvsID, "id", "", "CV ID (required)")
		_ = c.MarkFlagRequired("id")
	}

	cvsCmd.AddCommand(cvsListCmd, cvsShowCmd, cvsDeleteCmd)
	rootCmd.AddCommand(cvsCmd)
}

func parseIDFlag(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s %q: %w", name, value, err)
	}
	return id, nil
}

// withClient opens the configured store and runs fn with a client acting as userID.
func withClient(cmd *cobra.Command, userID uuid.UUID, fn func(ctx context.Context, client *remote.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	client := remote.NewClient(backend, remote.StaticIdentity(userID), remote.WithLogger(logger))
	return fn(ctx, client)
}

func writeCVList(w io.Writer, cvs []types.CVSummary) error {
	if len(cvs) == 0 {
		_, err := fmt.Fprintln(w, "no CVs")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUPDATED\tCOMPLETE")
	for _, cv := range cvs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", cv.ID, cv.Title, cv.UpdatedAt.Local().Format(time.DateTime), cv.IsComplete)
	}
	return tw.Flush()
}
