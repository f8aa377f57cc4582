package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	mediarouter "github.com/shoraid/go-media-router"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload local files",
	Long:  `Transform and upload one or more local files for an owner.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().String("owner", "", "Owner of the uploaded media")
	uploadCmd.Flags().String("title", "", "Title applied to every file")
	uploadCmd.Flags().String("description", "", "Description applied to every file")
	uploadCmd.Flags().IntP("workers", "w", 0, "Concurrent uploads (defaults to MEDIA_UPLOAD_WORKERS)")
	_ = uploadCmd.MarkFlagRequired("owner")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	owner, _ := cmd.Flags().GetString("owner")
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	workers, _ := cmd.Flags().GetInt("workers")

	inputs := make([]mediarouter.UploadInput, 0, len(args))
	for _, path := range args {
		file, err := readFile(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, mediarouter.UploadInput{
			File:        file,
			Title:       title,
			Description: description,
			OwnerID:     owner,
		})
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if workers <= 0 {
		workers = a.cfg.UploadWorkers
	}

	results := a.service.UploadMany(ctx, inputs, workers, func(i int, p mediarouter.Progress) {
		a.log.Debug().Str("file", args[i]).Str("stage", string(p.Stage)).Int("percent", p.Percent).Msg("progress")
	})

	var failed int
	out := cmd.OutOrStdout()
	for i, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "FAIL  %s  %s\n", args[i], mediarouter.UserMessage(res.Err))
			a.log.Error().Err(res.Err).Str("file", args[i]).Msg("upload failed")
			continue
		}
		fmt.Fprintf(out, "OK    %s  %s  %s  %s\n", args[i], res.Record.ID, res.Record.ProviderID, res.Record.ObjectKey)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func readFile(path string) (mediarouter.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mediarouter.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return mediarouter.File{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}
