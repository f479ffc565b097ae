package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	sc "github.com/dmitrijs2005/voicefeed/internal/server/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectAPI is the subset of *s3.Client used by StorageService.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Presigner is the subset of *s3.PresignClient used by StorageService.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// UploadTicket tells a client where and how to PUT an object.
type UploadTicket struct {
	Key       string      `json:"key"`
	URL       string      `json:"url"`
	Method    string      `json:"method"`
	Headers   http.Header `json:"headers,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// StorageService fronts the S3-compatible object store. Every key a caller
// touches must live under "<userID>/".
type StorageService struct {
	config *sc.Config
	logger logging.Logger

	once      sync.Once
	initErr   error
	api       ObjectAPI
	presigner Presigner
}

func NewStorageService(cfg *sc.Config, l logging.Logger) *StorageService {
	return &StorageService{config: cfg, logger: logging.ForModule(l, "storage")}
}

// NewStorageServiceWithClients skips client construction from config.
func NewStorageServiceWithClients(cfg *sc.Config, l logging.Logger, api ObjectAPI, p Presigner) *StorageService {
	s := NewStorageService(cfg, l)
	s.once.Do(func() {})
	s.api, s.presigner = api, p
	return s
}

func (s *StorageService) clients() (ObjectAPI, Presigner, error) {
	s.once.Do(func() {
		cfg, err := loadDefaultAWSConfig(context.Background(),
			config.WithRegion(s.config.S3Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				s.config.S3RootUser,
				s.config.S3RootPassword,
				"",
			)))
		if err != nil {
			s.initErr = err
			return
		}

		client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
			if s.config.S3BaseEndpoint != "" {
				o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			}
			// MinIO serves buckets under the path, not a subdomain.
			o.UsePathStyle = true
		})
		s.api = client
		s.presigner = s3.NewPresignClient(client)
	})
	return s.api, s.presigner, s.initErr
}

func (s *StorageService) checkBucket(bucket string) error {
	if bucket != s.config.S3Bucket {
		return fmt.Errorf("%w: unknown bucket %q", common.ErrorNotFound, bucket)
	}
	return nil
}

// CheckKey enforces that key is a clean path inside the caller's prefix.
func CheckKey(userID, key string) error {
	if userID == "" {
		return common.ErrUnauthenticated
	}
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "//") {
		return fmt.Errorf("%w: malformed object key %q", common.ErrorValidation, key)
	}
	if !strings.HasPrefix(key, userID+"/") {
		return fmt.Errorf("%w: key %q is outside %s/", common.ErrorForbidden, key, userID)
	}
	return nil
}

// CreateUpload presigns a PUT for key. Without overwrite the signature
// covers If-None-Match: * so an existing object is never replaced.
func (s *StorageService) CreateUpload(ctx context.Context, userID, bucket, key, contentType string, overwrite bool) (*UploadTicket, error) {
	if err := s.checkBucket(bucket); err != nil {
		return nil, err
	}
	if err := CheckKey(userID, key); err != nil {
		return nil, err
	}

	_, presigner, err := s.clients()
	if err != nil {
		return nil, err
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	if !overwrite {
		in.IfNoneMatch = aws.String("*")
	}

	expiry := s.config.UploadURLExpiry
	req, err := presigner.PresignPutObject(ctx, in, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	for k, vs := range req.SignedHeader {
		if strings.EqualFold(k, "host") {
			continue
		}
		for _, v := range vs {
			headers.Add(k, v)
		}
	}
	if headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", contentType)
	}

	s.logger.Debug(ctx, "presigned upload", "key", key, "overwrite", overwrite)
	return &UploadTicket{
		Key:       key,
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

// Put stores data directly from the server.
func (s *StorageService) Put(ctx context.Context, userID, bucket, key string, data []byte, contentType string, overwrite bool) (string, error) {
	if err := s.checkBucket(bucket); err != nil {
		return "", err
	}
	if err := CheckKey(userID, key); err != nil {
		return "", err
	}

	api, _, err := s.clients()
	if err != nil {
		return "", err
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if !overwrite {
		in.IfNoneMatch = aws.String("*")
	}
	if _, err := api.PutObject(ctx, in); err != nil {
		return "", err
	}
	return key, nil
}

// PublicURL resolves the public address of an object. No request is made.
func (s *StorageService) PublicURL(bucket, key string) (string, error) {
	if err := s.checkBucket(bucket); err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("%w: empty key", common.ErrorValidation)
	}
	base := strings.TrimRight(s.config.PublicBaseURL(), "/")
	if _, err := url.Parse(base); err != nil || base == "" {
		return "", fmt.Errorf("%w: bad public base url", common.ErrorInternal)
	}

	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return base + "/" + url.PathEscape(bucket) + "/" + strings.Join(segs, "/"), nil
}

// Remove deletes keys in one DeleteObjects call. Missing objects are not
// an error.
func (s *StorageService) Remove(ctx context.Context, userID, bucket string, keys []string) error {
	if err := s.checkBucket(bucket); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		if err := CheckKey(userID, k); err != nil {
			return err
		}
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
	}

	api, _, err := s.clients()
	if err != nil {
		return err
	}

	out, err := api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return err
	}
	if len(out.Errors) > 0 {
		e := out.Errors[0]
		return fmt.Errorf("delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
	}
	s.logger.Info(ctx, "objects removed", "count", len(keys))
	return nil
}
