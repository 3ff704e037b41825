package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medinsight/api/internal/analysis"
	"medinsight/api/internal/output"
	"medinsight/api/internal/util"
)

var (
	analyzeFile     string
	analyzeModality string
	analyzeSave     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a local image and print the report",
	Long: `Run the full analysis pipeline on a local image file.

Examples:
  medinsight analyze --file chest.jpg --modality xray
  medinsight analyze --file labs.png --modality blood_test --save
  medinsight analyze -f rx.jpg -m prescription -o markdown > rx.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(analyzeFile)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}

		a, err := buildApp(ctx, cfg, log, analyzeSave)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.svc.Analyze(ctx, analysis.Request{
			ImageBase64: base64.StdEncoding.EncodeToString(data),
			MIMEType:    util.SniffMimeHTTP(data),
			Modality:    analyzeModality,
		})
		if err != nil {
			return err
		}
		return output.WriteReport(cmd.OutOrStdout(), format, rep)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "image file to analyze")
	analyzeCmd.Flags().StringVarP(&analyzeModality, "modality", "m", "xray", "xray, blood_test or prescription")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "store the report in DATABASE_URL")
	_ = analyzeCmd.MarkFlagRequired("file")
}
