/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package export

import (
	"context"
	"path"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

// GCSArchive uploads documents to a Cloud Storage bucket
type GCSArchive struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

// NewGCSArchive connects with application default credentials
func NewGCSArchive(ctx context.Context, bucket string) (*GCSArchive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create storage client")
	}
	return &GCSArchive{Client: client, Bucket: bucket, Prefix: "metrics"}, nil
}

func (archive *GCSArchive) Write(ctx context.Context, objectName string, data []byte) error {
	writer := archive.Client.Bucket(archive.Bucket).Object(path.Join(archive.Prefix, objectName)).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return errors.Wrapf(err, "unable to upload %s", objectName)
	}
	return errors.Wrapf(writer.Close(), "unable to upload %s", objectName)
}

// Close releases the storage client
func (archive *GCSArchive) Close() error {
	return archive.Client.Close()
}

// MultiArchive writes to every archive and reports the first failure
type MultiArchive []Archive

func (archives MultiArchive) Write(ctx context.Context, objectName string, data []byte) error {
	var first error
	for _, archive := range archives {
		if err := archive.Write(ctx, objectName, data); err != nil && first == nil {
			first = err
		}
	}
	return first
}
