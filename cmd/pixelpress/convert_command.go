package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pixelpress/internal/imaging"
	"pixelpress/internal/logging"
	"pixelpress/internal/notifications"
	"pixelpress/internal/services"
	"pixelpress/internal/session"
)

func newConvertCommand(cmdCtx *commandContext) *cobra.Command {
	var formatFlag string
	var qualityFlag float64
	var exportFlag string

	cmd := &cobra.Command{
		Use:   "convert <image-file>",
		Short: "Convert an image and record the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			format := cfg.Conversion.DefaultFormat
			if strings.TrimSpace(formatFlag) != "" {
				format = formatFlag
			}
			parsedFormat, ok := imaging.ParseFormat(format)
			if !ok {
				return fmt.Errorf("unknown format %q (expected one of %s)", format, formatChoices())
			}
			quality := cfg.Conversion.DefaultQuality
			if cmd.Flags().Changed("quality") {
				quality = qualityFlag
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			release, err := cmdCtx.acquireDataLock()
			if err != nil {
				return err
			}
			defer release()

			logger, err := cmdCtx.newLogger()
			if err != nil {
				return err
			}
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = services.WithRequestID(ctx, uuid.NewString())

			encoder := imaging.NewEncoder(logger)
			notifier := notifications.NewService(cfg)
			sess := session.New(cfg, encoder, store, notifier, logger)
			defer sess.Close()

			logger.Info("conversion requested",
				logging.Args(logging.ContextFields(ctx)...)...,
			)

			if err := sess.LoadPhoto(ctx, raw); err != nil {
				return fmt.Errorf("load image: %w", err)
			}
			if err := sess.ChooseFormat(ctx, parsedFormat); err != nil {
				return err
			}
			if err := sess.ChooseQuality(ctx, quality); err != nil {
				return err
			}
			if err := sess.StartConversion(ctx); err != nil {
				return err
			}

			snap, err := awaitConversion(ctx, sess)
			if err != nil {
				return err
			}
			if snap.State.Kind == session.StateFailed {
				return fmt.Errorf("conversion failed: %s", snap.State.Failure)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Converted to %s (%d bytes), job %s\n", formatLabel(snap.EncodedFormat), len(snap.ConvertedBytes), snap.JobID)
			if snap.Fallback {
				fmt.Fprintf(out, "Requested %s is not natively supported; encoded as %s instead\n", formatLabel(snap.Format), formatLabel(snap.EncodedFormat))
			}

			exportDir := cfg.Paths.ExportDir
			if strings.TrimSpace(exportFlag) != "" {
				exportDir = exportFlag
			}
			if exportDir != "" {
				path, err := sess.Export(ctx, exportDir)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				fmt.Fprintf(out, "Exported to %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format ("+formatChoices()+")")
	cmd.Flags().Float64VarP(&qualityFlag, "quality", "q", 0, "Quality factor between 0 and 1")
	cmd.Flags().StringVar(&exportFlag, "export", "", "Directory to export the converted image to")

	return cmd
}

// awaitConversion polls the session until it leaves the converting
// state. The snapshot round trip doubles as the happens-before edge
// with the owner loop.
func awaitConversion(ctx context.Context, sess *session.Session) (session.Snapshot, error) {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	for {
		snap, err := sess.Snapshot(ctx)
		if err != nil {
			return session.Snapshot{}, err
		}
		switch snap.State.Kind {
		case session.StateCompleted, session.StateFailed:
			return snap, nil
		}

		select {
		case <-ctx.Done():
			if resetErr := sess.Reset(context.Background()); resetErr != nil && !errors.Is(resetErr, session.ErrRejected) {
				return session.Snapshot{}, errors.Join(ctx.Err(), resetErr)
			}
			return session.Snapshot{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
