// Package storage сохраняет изображения товаров в S3-совместимом хранилище.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	// MaxImageSize ограничивает размер загружаемого изображения.
	MaxImageSize = 10 << 20

	thumbnailWidth = 320
	keyPrefix      = "products"
)

// ErrInvalidImage возвращается, если загруженный файл не является поддерживаемым изображением.
var ErrInvalidImage = errors.New("invalid image")

// Image содержит ссылки на сохранённое изображение и его миниатюру.
type Image struct {
	URL          string
	ThumbnailURL string
}

// Options содержит параметры подключения к хранилищу.
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store загружает изображения и миниатюры в бакет.
type S3Store struct {
	client  objectPutter
	bucket  string
	baseURL string
}

// NewS3Store создаёт клиент S3. При заданном Endpoint используется path-style адресация (MinIO).
func NewS3Store(ctx context.Context, opts Options) (*S3Store, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newStore(client, opts), nil
}

func newStore(client objectPutter, opts Options) *S3Store {
	return &S3Store{client: client, bucket: opts.Bucket, baseURL: publicBaseURL(opts)}
}

func publicBaseURL(opts Options) string {
	switch {
	case opts.PublicURL != "":
		return strings.TrimRight(opts.PublicURL, "/")
	case opts.Endpoint != "":
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
}

// SaveImage сохраняет изображение и его миниатюру шириной 320px и возвращает их адреса.
func (s *S3Store) SaveImage(ctx context.Context, filename string, r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageSize)
	}

	thumb, err := makeThumbnail(data)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	key := path.Join(keyPrefix, id+strings.ToLower(path.Ext(filename)))
	thumbKey := path.Join(keyPrefix, id+"_thumb.jpg")

	if err := s.put(ctx, key, http.DetectContentType(data), data); err != nil {
		return nil, err
	}
	if err := s.put(ctx, thumbKey, "image/jpeg", thumb); err != nil {
		return nil, err
	}

	return &Image{URL: s.baseURL + "/" + key, ThumbnailURL: s.baseURL + "/" + thumbKey}, nil
}

func (s *S3Store) put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func makeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if img.Bounds().Dx() > thumbnailWidth {
		img = imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
