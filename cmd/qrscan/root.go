package main

import (
	"fmt"
	"os"
	"time"

	"github.com/qrflow/qrflow/scan"
	"github.com/qrflow/qrflow/version"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	options     scan.Options
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "version of qrscan")
	rootCmd.PersistentFlags().StringVarP(&options.WatchDir, "watch_dir", "w", "qr_series_output", "directory watched for captured code images")
	rootCmd.PersistentFlags().StringVarP(&options.OutDir, "out_dir", "o", ".", "directory for the restored file, draft and manifest")
	rootCmd.PersistentFlags().IntVarP(&options.ChunkSize, "chunk_size", "n", 2048, "raw bytes per code, must match the sender")
	rootCmd.PersistentFlags().DurationVarP(&options.StallTimeout, "stall_timeout", "t", 60*time.Second, "give up when no new part arrives for this long")

	rootCmd.PersistentFlags().StringVarP(&options.LogFile, "log_file", "", "console", "log file path")
	rootCmd.PersistentFlags().StringVarP(&options.LogLevel, "log_level", "", "info", "log level")
	rootCmd.PersistentFlags().Int64VarP(&options.LogMaxDays, "log_max_days", "", 3, "log file reserved max days")
}

var rootCmd = &cobra.Command{
	Use:   "qrscan",
	Short: "qrscan reassembles a file from captured QR code images",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(version.Full())
			return nil
		}

		svc, err := scan.NewService(options)
		if err != nil {
			fmt.Printf("new qrscan service error: %v\n", err)
			os.Exit(1)
		}

		err = svc.Run()
		if err != nil {
			fmt.Printf("qrscan run error: %v\n", err)
			os.Exit(1)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
