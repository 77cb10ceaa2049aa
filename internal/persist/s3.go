package persist

import (
	"bytes"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/nicolagi/t8mesh/internal/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// s3Store persists checkpoints to an S3 bucket, the same session,
// credentials, and retry setup as the teacher's storage.s3Store.
type s3Store struct {
	client *s3.S3
	bucket string
}

var _ Store = (*s3Store)(nil)

// NewS3Store returns an S3-backed Store.
func NewS3Store(c *config.C) (Store, error) {
	const maxRetries = 16
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(c.S3Region),
		Credentials: credentials.NewSharedCredentials("", c.S3Profile),
		MaxRetries:  aws.Int(maxRetries),
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &s3Store{
		client: s3.New(sess),
		bucket: c.S3Bucket,
	}, nil
}

func (s *s3Store) Get(key Key) (Value, error) {
	output, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
	})
	if err != nil {
		if rfErr, ok := err.(awserr.RequestFailure); ok {
			if rfErr.StatusCode() == http.StatusNotFound {
				return nil, errors.Wrapf(ErrNotFound, "key=%q err=%+v", key, err)
			}
		}
		return nil, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			log.WithFields(log.Fields{"key": key, "cause": err}).Warning("persist: could not close S3 response body")
		}
	}()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, output.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Put writes value under key. Since Key is the content hash of Value
// (KeyFor), any object already stored under key is guaranteed to hold
// this exact value, so Put first checks for that with a HeadObject and
// skips the PutObject entirely when the key is already present - turning
// a resubmitted checkpoint (cmd/meshctl snapshot run twice on the same
// mesh) into a single round trip instead of a redundant upload.
func (s *s3Store) Put(key Key, value Value) error {
	_, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
	})
	if err == nil {
		return nil
	}
	if rfErr, ok := err.(awserr.RequestFailure); !ok || rfErr.StatusCode() != http.StatusNotFound {
		return errors.WithStack(err)
	}

	_, err = s.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (s *s3Store) Delete(key Key) error {
	if _, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
	}); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
