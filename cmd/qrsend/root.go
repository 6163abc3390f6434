package main

import (
	"fmt"
	"os"

	"github.com/qrflow/qrflow/broadcast"
	"github.com/qrflow/qrflow/version"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	options     broadcast.Options
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "version of qrsend")
	rootCmd.PersistentFlags().StringVarP(&options.SrcFile, "src_file", "f", "", "file to send as a code series")
	rootCmd.PersistentFlags().StringVarP(&options.OutDir, "out_dir", "o", "qr_series_output", "directory the code images are written to")
	rootCmd.PersistentFlags().IntVarP(&options.ChunkSize, "chunk_size", "n", 2048, "raw bytes per code, default(2048 B)")
	rootCmd.PersistentFlags().Float64VarP(&options.Rate, "rate", "r", 1, "codes produced per second")
	rootCmd.PersistentFlags().IntVarP(&options.QRSize, "qr_size", "", 1000, "code image edge in pixels")
	rootCmd.PersistentFlags().StringVarP(&options.ManifestFile, "manifest", "m", "", "remediation manifest, only its missing parts are sent")

	rootCmd.PersistentFlags().StringVarP(&options.LogFile, "log_file", "", "console", "log file path")
	rootCmd.PersistentFlags().StringVarP(&options.LogLevel, "log_level", "", "info", "log level")
	rootCmd.PersistentFlags().Int64VarP(&options.LogMaxDays, "log_max_days", "", 3, "log file reserved max days")
}

var rootCmd = &cobra.Command{
	Use:   "qrsend",
	Short: "qrsend splits a file into a series of QR code images",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(version.Full())
			return nil
		}

		svc, err := broadcast.NewService(options)
		if err != nil {
			fmt.Printf("new qrsend service error: %v\n", err)
			os.Exit(1)
		}

		err = svc.Run()
		if err != nil {
			fmt.Printf("qrsend run error: %v\n", err)
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
