package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignAPI is the subset of the S3 presign client the media store
// uses. *s3.PresignClient satisfies it.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// MediaStore uploads image and video blobs to S3 and issues presigned
// GET URLs for reading them back. Large uploads go through the transfer
// manager, which splits them into concurrent multipart requests.
type MediaStore struct {
	uploader    *manager.Uploader
	presigner   PresignAPI
	imageBucket string
	videoBucket string
	presignTTL  time.Duration
}

// NewMediaStore builds a MediaStore over client. A non-positive ttl
// falls back to one hour.
func NewMediaStore(client manager.UploadAPIClient, presigner PresignAPI, imageBucket, videoBucket string, ttl time.Duration) *MediaStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MediaStore{
		uploader:    manager.NewUploader(client),
		presigner:   presigner,
		imageBucket: imageBucket,
		videoBucket: videoBucket,
		presignTTL:  ttl,
	}
}

// ImageBucket returns the bucket image uploads land in.
func (m *MediaStore) ImageBucket() string { return m.imageBucket }

// VideoBucket returns the bucket video uploads land in.
func (m *MediaStore) VideoBucket() string { return m.videoBucket }

// UploadImage stores an image under <dataType>/<deviceID>/<timestamp>.jpg
// and returns the key. The content type is sniffed from the bytes, with
// image/jpeg assumed when the format is not recognized.
func (m *MediaStore) UploadImage(ctx context.Context, dataType, deviceID string, data []byte, ts time.Time) (string, error) {
	key := fmt.Sprintf("%s/%s/%s.jpg", dataType, deviceID, ts.UTC().Format("2006-01-02-15-04-05"))
	if _, err := m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.imageBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(sniffImageType(data)),
	}); err != nil {
		return "", fmt.Errorf("uploading image to %s: %w", m.imageBucket, err)
	}
	return key, nil
}

// UploadVideo stores a video under videos/<deviceID>/<timestamp>.<ext>
// and returns the key. The extension follows the declared content type,
// defaulting to mp4.
func (m *MediaStore) UploadVideo(ctx context.Context, deviceID string, data []byte, contentType string, ts time.Time) (string, error) {
	if contentType == "" {
		contentType = "video/mp4"
	}
	key := fmt.Sprintf("videos/%s/%s.%s", deviceID, ts.UTC().Format("2006-01-02-15-04-05"), videoExtension(contentType))
	if _, err := m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.videoBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", fmt.Errorf("uploading video to %s: %w", m.videoBucket, err)
	}
	return key, nil
}

// PresignGet returns a time-limited GET URL for bucket/key.
func (m *MediaStore) PresignGet(ctx context.Context, bucket, key string) (string, error) {
	req, err := m.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(m.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presigning %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

func sniffImageType(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "image/jpeg"
	}
	switch format {
	case "png", "gif", "webp", "bmp", "tiff":
		return "image/" + format
	default:
		return "image/jpeg"
	}
}

func videoExtension(contentType string) string {
	switch contentType {
	case "video/webm":
		return "webm"
	case "video/quicktime":
		return "mov"
	case "video/x-msvideo":
		return "avi"
	default:
		return "mp4"
	}
}
