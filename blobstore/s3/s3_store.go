package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/lazyarr/blobstore"
)

// Store implements blobstore.Store for S3.
type Store struct {
	client     *s3.Client
	downloader *manager.Downloader
	bucket     string
	prefix     string
}

// NewStore creates a new S3 blob store.
// rootPrefix is prepended to all keys (e.g. "forecasts/gfs-2024/");
// a trailing slash is optional.
func NewStore(client *s3.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		prefix:     strings.TrimSuffix(rootPrefix, "/"),
	}
}

// NewDefaultStore creates a Store using the default AWS credential and
// region chain.
func NewDefaultStore(ctx context.Context, bucket, rootPrefix string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// relKey maps an absolute object key back to a store-relative one.
func (s *Store) relKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}

// Open opens an existing object for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	// Get metadata to verify existence and size
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	return &s3Blob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Get fetches a whole object using the parallel transfer manager.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// List returns all keys under prefix, relative to the store root.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	full := s.key(prefix)
	// path.Join strips a trailing slash, which changes list semantics.
	if len(prefix) > 0 && prefix[len(prefix)-1] == '/' {
		full += "/"
	}

	var names []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(full),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			names = append(names, s.relKey(aws.ToString(obj.Key)))
		}
	}
	return names, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

type s3Blob struct {
	client *s3.Client
	bucket string
	key    string
	size   int64
}

func (b *s3Blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	end := off + int64(len(p)) - 1
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, err
	}
	defer out.Body.Close()

	total := 0
	for total < len(p) {
		n, err := out.Body.Read(p[total:])
		total += n
		if err != nil {
			break
		}
	}
	return total, nil
}

func (b *s3Blob) Close() error {
	return nil
}

func (b *s3Blob) Size() int64 {
	return b.size
}
