package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ObjectURI formats a gs:// URI.
func ObjectURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// SaveToGCSAtomically writes data to a GCS object only if it doesn't already
// exist. An existing object is not an error: outputs are named after the
// input hash, so a re-delivered event produces the same object.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, data []byte, contentType string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// ReadObject downloads an object into memory, refusing anything larger than
// maxBytes when maxBytes is positive.
func ReadObject(ctx context.Context, bucket *storage.BucketHandle, objectName string, maxBytes int64) ([]byte, error) {
	reader, err := bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for %s: %w", objectName, err)
	}
	defer reader.Close()

	if maxBytes > 0 && reader.Attrs.Size > maxBytes {
		return nil, fmt.Errorf("object %s is too large (%d bytes, limit %d)", objectName, reader.Attrs.Size, maxBytes)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", objectName, err)
	}
	return data, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// Objects reads and writes GCS objects by bucket name.
type Objects struct {
	client *storage.Client
}

func NewObjects(client *storage.Client) *Objects {
	return &Objects{client: client}
}

func (o *Objects) Read(ctx context.Context, bucket, name string, maxBytes int64) ([]byte, error) {
	return ReadObject(ctx, o.client.Bucket(bucket), name, maxBytes)
}

func (o *Objects) Exists(ctx context.Context, bucket, name string) (bool, error) {
	_, err := o.client.Bucket(bucket).Object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", ObjectURI(bucket, name), err)
	}
	return true, nil
}

func (o *Objects) WriteOnce(ctx context.Context, bucket, name string, data []byte, contentType string) error {
	return SaveToGCSAtomically(ctx, o.client.Bucket(bucket), name, data, contentType)
}
