package export

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type gcpStore struct {
	logger zerolog.Logger
	bucket string
	client *storage.Client
}

func NewGCPStore(logger zerolog.Logger, client *storage.Client, bucket string) *gcpStore {
	return &gcpStore{
		bucket: bucket,
		client: client,
		logger: logger,
	}
}

func (s *gcpStore) CreateFromReader(ctx context.Context, r io.Reader, key string) (string, error) {
	s.logger.Debug().Str("file", key).Msgf("creating new file")
	wc := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(wc, r); err != nil {
		return "", errors.CombineErrors(err, wc.Close())
	}
	if err := wc.Close(); err != nil {
		return "", errors.Wrapf(err, "error uploading %s to gcs bucket %s", key, s.bucket)
	}
	s.logger.Debug().Str("file", key).Msgf("gcp file creation complete")
	return s.location(key), nil
}

func (s *gcpStore) location(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, key)
}
