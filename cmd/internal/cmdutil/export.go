package cmdutil

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cockroachdb/differ/export"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

func RegisterExportFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(
		"export-local-path",
		"",
		"path to a local directory the result tables are exported to",
	)
	cmd.PersistentFlags().String(
		"export-s3-bucket",
		"",
		"name of the s3 bucket the result tables are exported to",
	)
	cmd.PersistentFlags().String(
		"export-gcp-bucket",
		"",
		"name of the gcp bucket the result tables are exported to",
	)
	cmd.PersistentFlags().String(
		"export-format",
		string(export.FormatCSV),
		"file format of the exported tables (csv or parquet)",
	)
	cmd.PersistentFlags().String(
		"export-compression",
		string(export.CompressionNone),
		"compression of the exported files (none, gzip, zstd or lz4)",
	)
}

// ExportStore returns the store configured in v, or nil if exporting is off,
// along with the encoding of the exported tables.
func ExportStore(ctx context.Context, logger zerolog.Logger, v *viper.Viper) (export.Store, export.Options, error) {
	var opts export.Options
	var err error
	if opts.Format, err = export.ParseFormat(v.GetString("export.format")); err != nil {
		return nil, opts, err
	}
	if opts.Compression, err = export.ParseCompression(v.GetString("export.compression")); err != nil {
		return nil, opts, err
	}
	localPath := v.GetString("export.local-path")
	s3Bucket := v.GetString("export.s3-bucket")
	gcpBucket := v.GetString("export.gcp-bucket")

	var set int
	for _, s := range []string{localPath, s3Bucket, gcpBucket} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return nil, opts, errors.New("only one of the local path, s3 bucket or gcp bucket may be exported to")
	}

	switch {
	case gcpBucket != "":
		creds, err := google.FindDefaultCredentials(ctx, storage.ScopeReadWrite)
		if err != nil {
			return nil, opts, errors.Wrap(err, "error finding gcp credentials")
		}
		logger.Debug().Str("project", creds.ProjectID).Msgf("using default gcp credentials")
		gcpClient, err := storage.NewClient(ctx, option.WithCredentials(creds))
		if err != nil {
			return nil, opts, errors.Wrap(err, "error creating gcp client")
		}
		return export.NewGCPStore(logger, gcpClient, gcpBucket), opts, nil
	case s3Bucket != "":
		sess, err := session.NewSession()
		if err != nil {
			return nil, opts, errors.Wrap(err, "error creating aws session")
		}
		return export.NewS3Store(logger, sess, s3Bucket), opts, nil
	case localPath != "":
		store, err := export.NewLocalStore(logger, localPath)
		if err != nil {
			return nil, opts, err
		}
		return store, opts, nil
	}
	return nil, opts, nil
}
