package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
)

func reportCMD() *cobra.Command {
	var (
		cfgPath   string
		query     string
		name      string
		kinds     []string
		outputDir string
		endpoint  string
		bucket    string
		domain    string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Research a query once and publish the reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			storage := a.storage()
			if endpoint != "" {
				storage.Endpoint = endpoint
			}
			if bucket != "" {
				storage.Bucket = bucket
			}
			if domain != "" {
				storage.Domain = domain
			}
			if outputDir == "" {
				outputDir = a.cfg.General.OutputDir
			}
			if name == "" {
				name = uuid.NewString()
			}
			if len(kinds) == 0 {
				kinds = []string{a.cfg.Research.DefaultReportType}
			}

			results, err := a.pool.Run(ctx, pipeline.Job{
				ID:          name,
				Query:       query,
				ReportKinds: kinds,
				OutputDir:   outputDir,
				Storage:     storage,
				Requester:   "cli",
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "the full query to research")
	cmd.Flags().StringVar(&name, "name", "", "name of this query, used as the file name prefix (default random)")
	cmd.Flags().StringSliceVar(&kinds, "report-type", nil, "report types: research,resource,outline,detailed (comma separated)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "local artifact directory (default general.output_dir)")
	cmd.Flags().StringVar(&endpoint, "s3-endpoint", "", "object storage endpoint override")
	cmd.Flags().StringVar(&bucket, "s3-bucket", "", "object storage bucket override")
	cmd.Flags().StringVar(&domain, "s3-domain", "", "public domain override")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
