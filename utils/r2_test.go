package utils

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestR2UploaderUpload(t *testing.T) {
	put := &fakePutter{}
	u := newR2Uploader(put, "boards", "https://cdn.example.com/")

	url, err := u.Upload(context.Background(), "leaderboards/today.json", []byte(`{"entries":[]}`), "application/json")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example.com/leaderboards/today.json" {
		t.Errorf("url = %q", url)
	}
	if aws.ToString(put.input.Bucket) != "boards" || aws.ToString(put.input.ContentType) != "application/json" {
		t.Errorf("input = %+v", put.input)
	}
	if string(put.body) != `{"entries":[]}` {
		t.Errorf("body = %s", put.body)
	}
}

func TestR2UploaderWrapsErrors(t *testing.T) {
	boom := errors.New("access denied")
	u := newR2Uploader(&fakePutter{err: boom}, "boards", "https://cdn.example.com")

	if _, err := u.Upload(context.Background(), "k.json", nil, "application/json"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
