// Package testutil provides an in-memory S3 server and helpers shared by the
// package tests.
package testutil

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/input-output-hk/s3-artifact-handler/aws/s3/s3types"
)

// Default credentials accepted by a FakeS3.
const (
	FakeAccessKey = "AKIAFAKES3TEST"
	FakeSecretKey = "fake-s3-secret-key"
	FakeRegion    = "us-east-1"
)

const (
	amzDateFormat   = "20060102T150405Z"
	s3Namespace     = "http://s3.amazonaws.com/doc/2006-03-01/"
	unsignedPayload = "UNSIGNED-PAYLOAD"
)

// signerParams are the query parameters added by the presigner itself.
var signerParams = map[string]bool{
	"X-Amz-Algorithm":      true,
	"X-Amz-Credential":     true,
	"X-Amz-Date":           true,
	"X-Amz-SignedHeaders":  true,
	"X-Amz-Signature":      true,
	"X-Amz-Security-Token": true,
}

// RecordedRequest is one request received by a FakeS3.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Status int
}

// HasQuery reports whether the request carried the query parameter.
func (r RecordedRequest) HasQuery(param string) bool {
	_, ok := r.Query[param]
	return ok
}

// Fault makes the next request matching Method and Query fail with Status.
// Query names a parameter that must be present; empty matches any request.
// Code selects the S3 error code of the response document. A 2xx Status
// with a Code returns an error document with a success status.
type Fault struct {
	Method string
	Query  string
	Status int
	Code   string
}

type fakeObject struct {
	data         []byte
	etag         string
	contentType  string
	lastModified time.Time
}

type fakeUpload struct {
	bucket      string
	key         string
	contentType string
	parts       map[int][]byte
	etags       map[int]string
}

// FakeS3 is an in-memory S3 endpoint on an httptest server. It serves
// path-style requests, checks SigV4 query presignatures and records every
// request it receives.
type FakeS3 struct {
	server    *httptest.Server
	accessKey string
	secretKey string
	region    string
	now       func() time.Time
	signer    *v4.Signer

	mu       sync.Mutex
	buckets  map[string]map[string]*fakeObject
	regions  map[string]string
	uploads  map[string]*fakeUpload
	requests []RecordedRequest
	faults   []Fault
	dropETag bool
	nextID   int
}

// FakeOption configures a FakeS3.
type FakeOption func(*FakeS3)

// WithFakeClock sets the time used for signature expiry checks.
func WithFakeClock(now func() time.Time) FakeOption {
	return func(f *FakeS3) {
		f.now = now
	}
}

// WithFakeCredentials sets the only credentials the fake accepts.
func WithFakeCredentials(accessKey, secretKey string) FakeOption {
	return func(f *FakeS3) {
		f.accessKey = accessKey
		f.secretKey = secretKey
	}
}

// WithFakeBuckets pre-creates buckets.
func WithFakeBuckets(names ...string) FakeOption {
	return func(f *FakeS3) {
		for _, name := range names {
			f.buckets[name] = make(map[string]*fakeObject)
		}
	}
}

// NewFakeS3 starts a FakeS3 that is shut down when tb finishes.
func NewFakeS3(tb testing.TB, opts ...FakeOption) *FakeS3 {
	tb.Helper()

	f := &FakeS3{
		accessKey: FakeAccessKey,
		secretKey: FakeSecretKey,
		region:    FakeRegion,
		now:       time.Now,
		signer: v4.NewSigner(func(o *v4.SignerOptions) {
			o.DisableURIPathEscaping = true
		}),
		buckets: make(map[string]map[string]*fakeObject),
		regions: make(map[string]string),
		uploads: make(map[string]*fakeUpload),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	tb.Cleanup(f.server.Close)
	return f
}

// Endpoint returns the base URL of the server.
func (f *FakeS3) Endpoint() *url.URL {
	u, _ := url.Parse(f.server.URL)
	return u
}

// Credentials returns credentials the fake accepts.
func (f *FakeS3) Credentials() s3types.Credentials {
	return s3types.Credentials{AccessKey: f.accessKey, SecretKey: f.secretKey}
}

// Bucket returns a path-style bucket identity on the fake.
func (f *FakeS3) Bucket(tb testing.TB, name string) s3types.Bucket {
	tb.Helper()
	b, err := s3types.NewBucket(f.Endpoint(), name, f.region, s3types.URLStylePath)
	if err != nil {
		tb.Fatalf("fake bucket %q: %v", name, err)
	}
	return b
}

// CreateBucket creates a bucket directly.
func (f *FakeS3) CreateBucket(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[name]; !ok {
		f.buckets[name] = make(map[string]*fakeObject)
	}
}

// HasBucket reports whether the bucket exists.
func (f *FakeS3) HasBucket(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.buckets[name]
	return ok
}

// BucketRegion returns the LocationConstraint the bucket was created with.
func (f *FakeS3) BucketRegion(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regions[name]
}

// PutObject stores an object directly, creating the bucket if needed.
func (f *FakeS3) PutObject(bucket, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[bucket]; !ok {
		f.buckets[bucket] = make(map[string]*fakeObject)
	}
	f.buckets[bucket][key] = &fakeObject{
		data:         bytes.Clone(data),
		etag:         quotedMD5(data),
		contentType:  "application/octet-stream",
		lastModified: f.now().UTC().Truncate(time.Second),
	}
}

// Object returns a copy of a stored object.
func (f *FakeS3) Object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// ObjectContentType returns the content type a stored object was created with.
func (f *FakeS3) ObjectContentType(bucket, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.buckets[bucket][key]; ok {
		return obj.contentType
	}
	return ""
}

// Keys returns the sorted object keys of a bucket.
func (f *FakeS3) Keys(bucket string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.buckets[bucket]))
	for k := range f.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OpenUploads returns the number of multipart uploads that were initiated
// but neither completed nor aborted.
func (f *FakeS3) OpenUploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// Inject queues a fault. Faults are consumed in order of matching.
func (f *FakeS3) Inject(fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, fault)
}

// FailNext makes the next request matching method and query fail with status.
func (f *FakeS3) FailNext(method, query string, status int) {
	f.Inject(Fault{Method: method, Query: query, Status: status})
}

// DropETag controls whether part uploads omit the ETag header.
func (f *FakeS3) DropETag(drop bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropETag = drop
}

// Requests returns the requests received so far.
func (f *FakeS3) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// CountRequests counts received requests with method that carried the query
// parameter. An empty query counts every request with method.
func (f *FakeS3) CountRequests(method, query string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && (query == "" || r.HasQuery(query)) {
			n++
		}
	}
	return n
}

func (f *FakeS3) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		f.requests = append(f.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Status: rec.status,
		})
	}()

	if status, code, msg := f.authenticate(r); status != 0 {
		writeError(rec, r, status, code, msg)
		return
	}

	if fault, ok := f.takeFault(r); ok {
		_, _ = io.Copy(io.Discard, r.Body)
		code := fault.Code
		if code == "" {
			code = strings.ReplaceAll(http.StatusText(fault.Status), " ", "")
		}
		writeError(rec, r, fault.Status, code, "injected fault")
		return
	}

	bucket, key := splitPath(r.URL.Path)
	switch {
	case bucket == "":
		writeError(rec, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "service operations are not supported")
	case key == "":
		f.serveBucket(rec, r, bucket)
	default:
		f.serveObject(rec, r, bucket, key)
	}
}

// authenticate checks a query presignature or, for SDK clients, the access
// key of an Authorization header. It returns a zero status on success.
func (f *FakeS3) authenticate(r *http.Request) (int, string, string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.Contains(auth, "Credential="+f.accessKey+"/") {
			return 0, "", ""
		}
		return http.StatusForbidden, "InvalidAccessKeyId", "unknown access key"
	}

	q := r.URL.Query()
	sig := q.Get("X-Amz-Signature")
	if sig == "" {
		return http.StatusForbidden, "AccessDenied", "request is not signed"
	}

	scope := strings.Split(q.Get("X-Amz-Credential"), "/")
	if len(scope) != 5 || scope[0] != f.accessKey {
		return http.StatusForbidden, "InvalidAccessKeyId", "unknown access key"
	}

	signedAt, err := time.Parse(amzDateFormat, q.Get("X-Amz-Date"))
	if err != nil {
		return http.StatusForbidden, "AuthorizationQueryParametersError", "bad X-Amz-Date"
	}
	expires, err := strconv.Atoi(q.Get("X-Amz-Expires"))
	if err != nil || expires < 1 {
		return http.StatusForbidden, "AuthorizationQueryParametersError", "bad X-Amz-Expires"
	}
	if f.now().After(signedAt.Add(time.Duration(expires) * time.Second)) {
		return http.StatusForbidden, "AccessDenied", "Request has expired"
	}

	unsigned := url.Values{}
	for k, vs := range q {
		if !signerParams[k] {
			unsigned[k] = vs
		}
	}
	target := &url.URL{
		Scheme:   "http",
		Host:     r.Host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: unsigned.Encode(),
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), nil)
	if err != nil {
		return http.StatusBadRequest, "InvalidRequest", err.Error()
	}
	req.URL.Path = target.Path
	req.URL.RawPath = target.RawPath

	creds := aws.Credentials{AccessKeyID: f.accessKey, SecretAccessKey: f.secretKey}
	signed, _, err := f.signer.PresignHTTP(r.Context(), creds, req, unsignedPayload, scope[3], scope[2], signedAt)
	if err != nil {
		return http.StatusInternalServerError, "InternalError", err.Error()
	}
	expected, err := url.Parse(signed)
	if err != nil || expected.Query().Get("X-Amz-Signature") != sig {
		return http.StatusForbidden, "SignatureDoesNotMatch", "signature does not match"
	}
	return 0, "", ""
}

func (f *FakeS3) takeFault(r *http.Request) (Fault, bool) {
	q := r.URL.Query()
	for i, fault := range f.faults {
		if fault.Method != r.Method {
			continue
		}
		if _, ok := q[fault.Query]; fault.Query != "" && !ok {
			continue
		}
		f.faults = append(f.faults[:i], f.faults[i+1:]...)
		return fault, true
	}
	return Fault{}, false
}

func (f *FakeS3) serveBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	_, exists := f.buckets[bucket]

	switch r.Method {
	case http.MethodHead:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case http.MethodPut:
		if exists {
			writeError(w, r, http.StatusConflict, "BucketAlreadyOwnedByYou", "bucket already owned by you")
			return
		}
		var cfg createBucketConfiguration
		if body, _ := io.ReadAll(r.Body); len(bytes.TrimSpace(body)) > 0 {
			if err := xml.Unmarshal(body, &cfg); err != nil {
				writeError(w, r, http.StatusBadRequest, "MalformedXML", err.Error())
				return
			}
		}
		f.buckets[bucket] = make(map[string]*fakeObject)
		f.regions[bucket] = cfg.LocationConstraint
		w.Header().Set("Location", "/"+bucket)
		w.WriteHeader(http.StatusOK)

	default:
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "unsupported bucket operation")
	}
}

func (f *FakeS3) serveObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	objects, exists := f.buckets[bucket]
	if !exists {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeError(w, r, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
		return
	}

	q := r.URL.Query()
	_, hasUploads := q["uploads"]
	uploadID := q.Get("uploadId")

	switch {
	case r.Method == http.MethodPost && hasUploads:
		f.initiate(w, r, bucket, key)
	case r.Method == http.MethodPut && uploadID != "":
		f.uploadPart(w, r, uploadID)
	case r.Method == http.MethodPost && uploadID != "":
		f.complete(w, r, objects, uploadID)
	case r.Method == http.MethodDelete && uploadID != "":
		delete(f.uploads, uploadID)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		obj := &fakeObject{
			data:         data,
			etag:         quotedMD5(data),
			contentType:  r.Header.Get("Content-Type"),
			lastModified: f.now().UTC().Truncate(time.Second),
		}
		objects[key] = obj
		w.Header().Set("ETag", obj.etag)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		obj, ok := objects[key]
		if !ok {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeError(w, r, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
			return
		}
		w.Header().Set("ETag", obj.etag)
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
		w.Header().Set("Last-Modified", obj.lastModified.Format(http.TimeFormat))
		if cc := q.Get("response-cache-control"); cc != "" {
			w.Header().Set("Cache-Control", cc)
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.data)
		}
	case r.Method == http.MethodDelete:
		delete(objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "unsupported object operation")
	}
}

func (f *FakeS3) initiate(w http.ResponseWriter, r *http.Request, bucket, key string) {
	f.nextID++
	id := fmt.Sprintf("upload-%04d", f.nextID)
	f.uploads[id] = &fakeUpload{
		bucket:      bucket,
		key:         key,
		contentType: r.Header.Get("Content-Type"),
		parts:       make(map[int][]byte),
		etags:       make(map[int]string),
	}
	writeXML(w, http.StatusOK, initiateResult{Xmlns: s3Namespace, Bucket: bucket, Key: key, UploadID: id})
}

func (f *FakeS3) uploadPart(w http.ResponseWriter, r *http.Request, uploadID string) {
	up, ok := f.uploads[uploadID]
	if !ok {
		writeError(w, r, http.StatusNotFound, "NoSuchUpload", "The specified upload does not exist.")
		return
	}
	number, err := strconv.Atoi(r.URL.Query().Get("partNumber"))
	if err != nil || number < 1 || number > 10000 {
		writeError(w, r, http.StatusBadRequest, "InvalidArgument", "bad part number")
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}
	if r.ContentLength >= 0 && int64(len(data)) != r.ContentLength {
		writeError(w, r, http.StatusBadRequest, "IncompleteBody", "body shorter than Content-Length")
		return
	}

	up.parts[number] = data
	up.etags[number] = quotedMD5(data)
	if !f.dropETag {
		w.Header().Set("ETag", up.etags[number])
	}
	w.WriteHeader(http.StatusOK)
}

func (f *FakeS3) complete(w http.ResponseWriter, r *http.Request, objects map[string]*fakeObject, uploadID string) {
	up, ok := f.uploads[uploadID]
	if !ok {
		writeError(w, r, http.StatusNotFound, "NoSuchUpload", "The specified upload does not exist.")
		return
	}

	body, _ := io.ReadAll(r.Body)
	var req completeRequest
	if err := xml.Unmarshal(body, &req); err != nil || len(req.Parts) == 0 {
		writeError(w, r, http.StatusBadRequest, "MalformedXML", "bad CompleteMultipartUpload document")
		return
	}

	var data []byte
	digests := md5.New()
	prev := 0
	for _, p := range req.Parts {
		if p.PartNumber <= prev {
			writeError(w, r, http.StatusBadRequest, "InvalidPartOrder", "parts must be ascending")
			return
		}
		prev = p.PartNumber
		part, ok := up.parts[p.PartNumber]
		if !ok || up.etags[p.PartNumber] != p.ETag {
			writeError(w, r, http.StatusBadRequest, "InvalidPart", "unknown part or etag mismatch")
			return
		}
		data = append(data, part...)
		sum := md5.Sum(part)
		digests.Write(sum[:])
	}

	etag := fmt.Sprintf(`"%s-%d"`, hex.EncodeToString(digests.Sum(nil)), len(req.Parts))
	contentType := up.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objects[up.key] = &fakeObject{
		data:         data,
		etag:         etag,
		contentType:  contentType,
		lastModified: f.now().UTC().Truncate(time.Second),
	}
	delete(f.uploads, uploadID)

	writeXML(w, http.StatusOK, completeResult{
		Xmlns:    s3Namespace,
		Location: "/" + up.bucket + "/" + up.key,
		Bucket:   up.bucket,
		Key:      up.key,
		ETag:     etag,
	})
}

func splitPath(p string) (bucket, key string) {
	p = strings.TrimPrefix(p, "/")
	bucket, key, _ = strings.Cut(p, "/")
	return bucket, key
}

func quotedMD5(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return
	}
	writeXML(w, status, errorResponse{Code: code, Message: msg, Resource: r.URL.Path, RequestID: "fake"})
}

func writeXML(w http.ResponseWriter, status int, v any) {
	body, err := xml.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

type initiateResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	Xmlns    string   `xml:"xmlns,attr"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	UploadID string   `xml:"UploadId"`
}

type completeRequest struct {
	XMLName xml.Name `xml:"CompleteMultipartUpload"`
	Parts   []struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
	} `xml:"Part"`
}

type completeResult struct {
	XMLName  xml.Name `xml:"CompleteMultipartUploadResult"`
	Xmlns    string   `xml:"xmlns,attr"`
	Location string   `xml:"Location"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	ETag     string   `xml:"ETag"`
}

type createBucketConfiguration struct {
	XMLName            xml.Name `xml:"CreateBucketConfiguration"`
	LocationConstraint string   `xml:"LocationConstraint"`
}

type errorResponse struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
}
