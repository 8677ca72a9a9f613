package presign

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresigner_ExpiresSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int64
	}{
		{ttl: 0, want: 1},
		{ttl: time.Millisecond, want: 1},
		{ttl: time.Second, want: 1},
		{ttl: 1500 * time.Millisecond, want: 2},
		{ttl: time.Minute, want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.ttl.String(), func(t *testing.T) {
			p := New(credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""), "us-east-1", tt.ttl, nil)
			assert.Equal(t, tt.want, p.ExpiresSeconds())
		})
	}
}

func TestPresigner_Presign(t *testing.T) {
	signedAt := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	p := New(
		credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		"eu-central-1",
		2*time.Second,
		func() time.Time { return signedAt },
	)

	u, err := url.Parse("http://127.0.0.1:9000/bucket/dir/a%20b.tar.gz?partNumber=1&uploadId=abc")
	require.NoError(t, err)

	signed, header, err := p.Presign(context.Background(), "PUT", u)
	require.NoError(t, err)

	q := signed.Query()
	assert.Equal(t, "AWS4-HMAC-SHA256", q.Get("X-Amz-Algorithm"))
	assert.Equal(t, "AKID/20240501/eu-central-1/s3/aws4_request", q.Get("X-Amz-Credential"))
	assert.Equal(t, "20240501T123000Z", q.Get("X-Amz-Date"))
	assert.Equal(t, "2", q.Get(ExpiresParam))
	assert.Equal(t, "host", q.Get("X-Amz-SignedHeaders"))
	assert.Len(t, q.Get("X-Amz-Signature"), 64)
	assert.Equal(t, "1", q.Get("partNumber"))
	assert.Equal(t, "abc", q.Get("uploadId"))
	assert.Equal(t, "/bucket/dir/a%20b.tar.gz", signed.EscapedPath())
	assert.Empty(t, header.Get("Host"))

	again, _, err := p.Presign(context.Background(), "PUT", u)
	require.NoError(t, err)
	assert.Equal(t, signed.String(), again.String(), "signing is deterministic for a fixed clock")

	other, _, err := p.Presign(context.Background(), "GET", u)
	require.NoError(t, err)
	assert.NotEqual(t, q.Get("X-Amz-Signature"), other.Query().Get("X-Amz-Signature"))

	assert.False(t, strings.Contains(signed.String(), "SECRET"))
	assert.Empty(t, u.Query().Get(ExpiresParam), "input url is not modified")
}
