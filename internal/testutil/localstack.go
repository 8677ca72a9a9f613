package testutil

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
)

// LocalStack is a running LocalStack container with S3 enabled.
type LocalStack struct {
	container *localstack.LocalStackContainer
	endpoint  *url.URL
}

// StartLocalStack starts a LocalStack container and terminates it when tb
// finishes. The test is skipped in short mode.
func StartLocalStack(ctx context.Context, tb testing.TB) *LocalStack {
	tb.Helper()

	if testing.Short() {
		tb.Skip("Skipping integration test in short mode")
	}

	container, err := localstack.Run(ctx,
		"localstack/localstack:latest",
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		tb.Fatalf("failed to start LocalStack container: %v", err)
	}
	tb.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			tb.Logf("failed to terminate LocalStack container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		tb.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		tb.Fatalf("failed to get container port: %v", err)
	}

	endpoint, err := url.Parse(fmt.Sprintf("http://%s:%s", host, port.Port()))
	if err != nil {
		tb.Fatalf("failed to parse endpoint: %v", err)
	}
	return &LocalStack{container: container, endpoint: endpoint}
}

// Endpoint returns the LocalStack endpoint URL.
func (l *LocalStack) Endpoint() *url.URL {
	u := *l.endpoint
	return &u
}

// Credentials returns the credentials LocalStack accepts.
func (l *LocalStack) Credentials() s3types.Credentials {
	return s3types.Credentials{AccessKey: "test", SecretKey: "test"}
}

// Bucket returns a path-style bucket identity on the container.
func (l *LocalStack) Bucket(tb testing.TB, name string) s3types.Bucket {
	tb.Helper()
	b, err := s3types.NewBucket(l.Endpoint(), name, s3types.DefaultRegion, s3types.URLStylePath)
	if err != nil {
		tb.Fatalf("bucket %q: %v", name, err)
	}
	return b
}
