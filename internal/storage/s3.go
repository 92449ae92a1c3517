package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// S3Store uploads chat images and wallpapers to object storage. A send
// must fail as a unit when the upload fails, so callers upload before
// persisting anything.
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucket     string
	region     string
	publicRead bool
}

func NewS3Store(ctx context.Context, region, bucket string, publicRead bool) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucket:     bucket,
		region:     region,
		publicRead: publicRead,
	}, nil
}

func (s *S3Store) put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	if s.publicRead {
		in.ACL = types.ObjectCannedACLPublicRead
	}
	_, err := s.uploader.Upload(ctx, in)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, url.PathEscape(key)), nil
}

// UploadImage stores a chat image and a downscaled thumbnail next to it.
// A failed thumbnail does not fail the upload; a failed original does.
func (s *S3Store) UploadImage(ctx context.Context, userID, filename, contentType string, data []byte) (imageURL, thumbURL string, err error) {
	key := path.Join("chat", userID, uuid.NewString()+"_"+filename)
	imageURL, err = s.put(ctx, key, contentType, data)
	if err != nil {
		return "", "", err
	}
	if thumb, terr := downscale(data); terr == nil {
		thumbURL, _ = s.put(ctx, key+"_thumb.jpg", "image/jpeg", thumb)
	}
	return imageURL, thumbURL, nil
}

// UploadWallpaper stores a room wallpaper image.
func (s *S3Store) UploadWallpaper(ctx context.Context, roomID, filename, contentType string, data []byte) (string, error) {
	key := path.Join("wallpapers", roomID, uuid.NewString()+"_"+filename)
	return s.put(ctx, key, contentType, data)
}

func downscale(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
