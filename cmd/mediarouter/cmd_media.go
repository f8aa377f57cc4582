package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	mediarouter "github.com/shoraid/go-media-router"
)

var urlCmd = &cobra.Command{
	Use:   "url [record-id]",
	Short: "Print the URL of a stored media record",
	Args:  cobra.ExactArgs(1),
	RunE:  runURL,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [record-id]",
	Short: "Delete a media record and its objects",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var reclaimCmd = &cobra.Command{
	Use:   "reclaim",
	Short: "Delete orphaned objects recorded in the Redis ledger",
	RunE:  runReclaim,
}

func init() {
	urlCmd.Flags().Bool("signed", false, "Print a temporary signed URL")
	urlCmd.Flags().Duration("expiry", 0, "Signed URL lifetime (defaults to MEDIA_SIGNED_URL_TTL)")

	reclaimCmd.Flags().Int("max", 100, "Maximum number of ledger entries to process")
}

func runURL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	signed, _ := cmd.Flags().GetBool("signed")
	expiry, _ := cmd.Flags().GetDuration("expiry")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	record, err := a.service.GetMedia(ctx, args[0])
	if err != nil {
		return err
	}

	var url string
	if signed {
		if expiry <= 0 {
			expiry = a.cfg.SignedURLTTL
		}
		url, err = a.service.GetSignedMediaURL(ctx, record.ObjectKey, record.ProviderID, expiry)
	} else {
		url, err = a.service.GetMediaURL(ctx, record.ObjectKey, record.ProviderID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	record, err := a.service.GetMedia(ctx, args[0])
	if err != nil {
		return err
	}

	if !a.service.DeleteMedia(ctx, mediarouter.DeleteInputFor(record)) {
		return fmt.Errorf("delete %s failed", args[0])
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

func runReclaim(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("max")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if a.ledger == nil {
		return errors.New("reclaim needs MEDIA_REDIS_URL")
	}

	start := time.Now()
	res, err := a.ledger.Reclaim(ctx, a.service.Registry(), limit)
	if err != nil {
		return err
	}

	pending, err := a.ledger.Pending(ctx)
	if err != nil {
		return err
	}

	a.log.Info().
		Int("reclaimed", res.Reclaimed).
		Int("requeued", res.Requeued).
		Int("skipped", res.Skipped).
		Int("dropped", res.Dropped).
		Int64("pending", pending).
		Dur("took", time.Since(start)).
		Msg("orphan reclamation finished")
	fmt.Fprintf(cmd.OutOrStdout(), "reclaimed=%d requeued=%d skipped=%d dropped=%d pending=%d\n", res.Reclaimed, res.Requeued, res.Skipped, res.Dropped, pending)
	return nil
}
