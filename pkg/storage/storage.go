package storage

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config is read from S3_* variables. Endpoint and ForcePathStyle target
// S3-compatible services such as MinIO.
type Config struct {
	Bucket         string        `env:"S3_BUCKET"`
	Region         string        `env:"S3_REGION" envDefault:"eu-central-1"`
	AccessKeyID    string        `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string        `env:"S3_SECRET_ACCESS_KEY"`
	Endpoint       string        `env:"S3_ENDPOINT"`
	ForcePathStyle bool          `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	KeyPrefix      string        `env:"S3_KEY_PREFIX" envDefault:"uploads/"`
	UploadTTL      time.Duration `env:"S3_UPLOAD_URL_TTL" envDefault:"10m"`
	PreviewTTL     time.Duration `env:"S3_PREVIEW_URL_TTL" envDefault:"1h"`
}

// Presigner is the subset of *s3.PresignClient used here.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// UploadRequest names one object to upload and its content type.
type UploadRequest struct {
	// Owner namespaces the object key, usually the user id.
	Owner    string `json:"owner"`
	ID       string `json:"id"`
	MIMEType string `json:"mimeType"`
}

var objectID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Storage issues presigned URLs so browsers talk to the bucket directly.
type Storage struct {
	presigner  Presigner
	bucket     string
	prefix     string
	uploadTTL  time.Duration
	previewTTL time.Duration
}

type Option func(*options)

type options struct {
	presigner  Presigner
	httpClient *http.Client
}

// WithPresigner skips AWS client construction; used in tests.
func WithPresigner(p Presigner) Option {
	return func(o *options) { o.presigner = p }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds the S3 client from cfg. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config, opts ...Option) (*Storage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	presigner := o.presigner
	if presigner == nil {
		loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		if o.httpClient != nil {
			loadOpts = append(loadOpts, config.WithHTTPClient(o.httpClient))
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}

		client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
		presigner = s3.NewPresignClient(client)
	}

	s := &Storage{
		presigner:  presigner,
		bucket:     cfg.Bucket,
		prefix:     cfg.KeyPrefix,
		uploadTTL:  cfg.UploadTTL,
		previewTTL: cfg.PreviewTTL,
	}
	if s.uploadTTL <= 0 {
		s.uploadTTL = 10 * time.Minute
	}
	if s.previewTTL <= 0 {
		s.previewTTL = time.Hour
	}
	return s, nil
}

// GenerateUploadURLs returns one presigned PUT URL per request, keyed by ID.
// The content type is part of the signature, so the browser must send the
// same Content-Type header. Requests are signed sequentially; signing is
// local and does not touch the network.
func (s *Storage) GenerateUploadURLs(ctx context.Context, reqs []UploadRequest) (map[string]string, error) {
	urls := make(map[string]string, len(reqs))
	for _, req := range reqs {
		if err := validateKey(req.Owner, req.ID); err != nil {
			return nil, err
		}
		if _, dup := urls[req.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateObjectID, req.ID)
		}

		signed, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.Key(req.Owner, req.ID)),
			ContentType: aws.String(req.MIMEType),
		}, s3.WithPresignExpires(s.uploadTTL))
		if err != nil {
			return nil, classify(err, "presign put")
		}
		urls[req.ID] = signed.URL
	}
	return urls, nil
}

// PreviewURL returns a presigned GET URL for an uploaded object.
func (s *Storage) PreviewURL(ctx context.Context, owner, id string) (string, error) {
	if err := validateKey(owner, id); err != nil {
		return "", err
	}
	signed, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(owner, id)),
	}, s3.WithPresignExpires(s.previewTTL))
	if err != nil {
		return "", classify(err, "presign get")
	}
	return signed.URL, nil
}

// Key maps an owner's upload id to its object key. Ids only need to be
// unique per owner.
func (s *Storage) Key(owner, id string) string {
	return s.prefix + owner + "/" + id
}

func validateKey(owner, id string) error {
	if !objectID.MatchString(owner) {
		return fmt.Errorf("%w: owner %q", ErrInvalidObjectID, owner)
	}
	if !objectID.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidObjectID, id)
	}
	return nil
}

// UploadTTL is how long upload URLs stay valid.
func (s *Storage) UploadTTL() time.Duration { return s.uploadTTL }
