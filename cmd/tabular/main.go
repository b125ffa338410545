// Command tabular reads delimited text files into named-field records
// and prints them or derived statistics. Table paths may be local files
// or s3://bucket/key objects.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/ipoole/tabular/internal/tabular"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	statsColumn string
	headCount   int
)

var rootCmd = &cobra.Command{
	Use:   "tabular",
	Short: "Read delimited text tables into named-field records.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := new(slog.LevelVar)
		if verbose {
			level.Set(slog.LevelDebug)
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo [path]",
	Short: "Write an example table, read it back and print derived values.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "trivial_test_example.csv"
		if len(args) == 1 {
			path = args[0]
		}

		if err := tabular.WriteExampleFile(path); err != nil {
			return err
		}
		slog.Debug("example file written", "path", path)

		table, err := tabular.ReadTable(path)
		if err != nil {
			return err
		}

		for _, rec := range table.Records {
			fmt.Println(rec)
		}

		fmt.Println()
		for _, rec := range table.Records {
			first, _ := rec.Get("first_name")
			second, _ := rec.Get("second_name")
			gender, _ := rec.Get("gender")
			age, err := rec.Int("age")
			if err != nil {
				return err
			}
			height, err := rec.Float("height")
			if err != nil {
				return err
			}
			fmt.Printf("%s %s is a %d years old %s and is %.2fm tall.\n",
				first, second, age, gender, height)
		}

		mean, err := tabular.Mean(table, "height")
		if err != nil {
			return err
		}
		fmt.Printf("\nMean height is %.2fm\n", mean)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <path>",
	Short: "Print sum, mean, min and max for one numeric column.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := readTable(args[0])
		if err != nil {
			return err
		}

		agg, err := tabular.Aggregate(table, statsColumn)
		if err != nil {
			return err
		}

		fmt.Printf("%s: count=%d sum=%.4f avg=%.4f min=%.4f max=%.4f\n",
			agg.Column, agg.Count, agg.Sum, agg.Avg, agg.Min, agg.Max)
		return nil
	},
}

var headCmd = &cobra.Command{
	Use:   "head <path>",
	Short: "Print the first records of a table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := readTable(args[0])
		if err != nil {
			return err
		}

		fmt.Println(strings.Join(table.Schema.Names(), ","))
		for i, rec := range table.Records {
			if i >= headCount {
				break
			}
			fmt.Println(strings.Join(rec.Values(), ","))
		}
		return nil
	},
}

// readTable reads a table from a local path or, for s3:// paths, from
// an S3 object downloaded to a temporary file first.
func readTable(path string) (*tabular.Table, error) {
	if !strings.HasPrefix(path, "s3://") {
		return tabular.ReadTable(path)
	}

	parts := strings.SplitN(strings.TrimPrefix(path, "s3://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid S3 path %q, want s3://bucket/key", path)
	}
	bucket, key := parts[0], parts[1]

	local := filepath.Join(os.TempDir(), filepath.Base(key))
	f, err := os.Create(local)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(local)

	sess := session.Must(session.NewSession())
	downloader := s3manager.NewDownloader(sess)
	n, err := downloader.Download(f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	slog.Debug("downloaded table from S3", "bucket", bucket, "key", key, "bytes", n)

	table, err := tabular.ReadTable(local)
	if err != nil {
		return nil, err
	}
	table.Name = path
	return table, nil
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	statsCmd.Flags().StringVarP(&statsColumn, "column", "c", "", "column to aggregate (required)")
	_ = statsCmd.MarkFlagRequired("column")
	headCmd.Flags().IntVarP(&headCount, "lines", "n", 10, "number of records to print")

	rootCmd.AddCommand(demoCmd, statsCmd, headCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
