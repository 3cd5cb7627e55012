package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourorg/motor-stats/internal/app"
)

var ingestURL string

var ingestCmd = &cobra.Command{
	Use:   "ingest <dataset>",
	Short: "Run one ingestion in-process",
	Long: `Downloads, checksums, parses and stores one dataset without going through
a worker. --url replaces the configured source, so a local file:// or s3://
copy of an archive can be loaded. Post generation is not run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.Open(ctx, appConfig, rootLogger)
		if err != nil {
			return err
		}
		defer a.Close()

		if ingestURL != "" {
			src := a.Cfg.Sources[args[0]]
			src.URL, src.IndexURL = ingestURL, ""
			a.Cfg.Sources[args[0]] = src
		}
		ds, err := a.Dataset(args[0])
		if err != nil {
			return err
		}

		scratch, err := os.MkdirTemp(a.Cfg.ScratchDir, ds.Name+"-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(scratch)

		res, err := a.Updater.Run(ctx, ds, scratch)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "Archive to load instead of the configured source (http(s)://, file:// or s3://)")
}
