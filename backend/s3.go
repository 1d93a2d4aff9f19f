package backend

import (
	"bytes"
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/swtpm-project/statecodec/errs"
)

// S3NVRAM implements NVRAM at blob granularity against an S3 bucket,
// for the VM-live-migration scenario spec §1 calls out: a
// PERSISTENT_ALL snapshot written by one host and loaded by another.
// Grounded on the teacher's session.Options{}-based S3 wiring in
// encoding/bamprovider/provider_test.go, generalized from s3file's
// file-interface style to the NVRAM blob-granularity contract (spec
// §6's nvram_load/nvram_store).
type S3NVRAM struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3NVRAM returns an S3-backed NVRAM using the default AWS session
// configuration, mirroring session.Options{} in the teacher's test
// wiring.
func NewS3NVRAM(bucket, prefix string) (*S3NVRAM, error) {
	sess, err := session.NewSession(&aws.Config{})
	if err != nil {
		return nil, errs.New(errs.BadParameter, "backend: s3 session: %v", err)
	}
	return &S3NVRAM{client: s3.New(sess), bucket: bucket, prefix: prefix}, nil
}

func (s *S3NVRAM) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Load fetches the named blob from S3, matching nvram_load's contract.
func (s *S3NVRAM) Load(name string) ([]byte, error) {
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, errs.New(errs.BadParameter, "backend: s3 load %s: %v", name, err)
	}
	defer out.Body.Close()
	data, err := ioutil.ReadAll(out.Body)
	if err != nil {
		return nil, errs.New(errs.Insufficient, "backend: s3 read %s: %v", name, err)
	}
	return data, nil
}

// Store uploads data as the named blob, matching nvram_store's
// contract.
func (s *S3NVRAM) Store(name string, data []byte) error {
	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errs.New(errs.BadParameter, "backend: s3 store %s: %v", name, err)
	}
	return nil
}
