// Package publish uploads persisted artifacts to S3-compatible object storage.
package publish

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
)

// Config names the storage target of one upload.
type Config struct {
	Endpoint string
	Bucket   string
	Domain   string
}

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ClientFactory builds a client for an endpoint.
type ClientFactory func(ctx context.Context, endpoint string) (ObjectPutter, error)

// S3Publisher uploads files under their base name. Two files sharing a base
// name overwrite each other in the bucket.
type S3Publisher struct {
	fs        afero.Fs
	newClient ClientFactory

	mu      sync.Mutex
	clients map[string]ObjectPutter
}

func NewS3Publisher(fs afero.Fs, factory ClientFactory) *S3Publisher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &S3Publisher{fs: fs, newClient: factory, clients: map[string]ObjectPutter{}}
}

// Publish uploads localPath and returns its public URL.
func (p *S3Publisher) Publish(ctx context.Context, localPath string, cfg Config) (string, error) {
	if cfg.Bucket == "" {
		return "", fmt.Errorf("publish %s: bucket not configured", localPath)
	}
	client, err := p.client(ctx, cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", localPath, err)
	}
	f, err := p.fs.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", localPath, err)
	}
	defer f.Close()

	name := ObjectName(localPath)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(cfg.Bucket),
		Key:         aws.String(name),
		Body:        f,
		ContentType: aws.String(ContentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to bucket %s: %w", name, cfg.Bucket, err)
	}
	return ObjectURL(cfg.Domain, name), nil
}

func (p *S3Publisher) client(ctx context.Context, endpoint string) (ObjectPutter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[endpoint]; ok {
		return c, nil
	}
	c, err := p.newClient(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	p.clients[endpoint] = c
	return c, nil
}

// ObjectName is the base name of localPath.
func ObjectName(localPath string) string { return filepath.Base(localPath) }

// ObjectURL joins the public domain and the object name.
func ObjectURL(domain, name string) string {
	return strings.TrimRight(domain, "/") + "/" + name
}

// ContentType guesses the MIME type from the name. ".supplementary.txt" holds
// Markdown and is served as text.
func ContentType(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
