// Package wire holds the XML documents of the S3 REST protocol used by the
// client and the helpers that decode them from HTTP responses.
package wire

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/smithy-go"
)

// Namespace is the XML namespace of S3 request and response documents.
const Namespace = "http://s3.amazonaws.com/doc/2006-03-01/"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// InitiateMultipartUploadResult is the response to POST ?uploads.
type InitiateMultipartUploadResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	UploadID string   `xml:"UploadId"`
}

// CompletedPart is one entry of a CompleteMultipartUpload request.
type CompletedPart struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

// CompleteMultipartUpload is the request body of POST ?uploadId.
type CompleteMultipartUpload struct {
	XMLName xml.Name        `xml:"CompleteMultipartUpload"`
	Xmlns   string          `xml:"xmlns,attr,omitempty"`
	Parts   []CompletedPart `xml:"Part"`
}

// CompleteMultipartUploadResult is the success response to POST ?uploadId.
type CompleteMultipartUploadResult struct {
	XMLName  xml.Name `xml:"CompleteMultipartUploadResult"`
	Location string   `xml:"Location"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	ETag     string   `xml:"ETag"`
}

// CreateBucketConfiguration is the optional request body of PUT bucket.
type CreateBucketConfiguration struct {
	XMLName            xml.Name `xml:"CreateBucketConfiguration"`
	Xmlns              string   `xml:"xmlns,attr,omitempty"`
	LocationConstraint string   `xml:"LocationConstraint"`
}

// ErrorResponse is the S3 error document.
type ErrorResponse struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
}

// Encode marshals v with an XML declaration.
func Encode(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Decode unmarshals body into v.
func Decode(body []byte, v any) error {
	if err := xml.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode xml: %w", err)
	}
	return nil
}

// RootElement returns the local name of the document's root element, or ""
// if body holds no element.
func RootElement(body []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}

// APIError converts an error document into a smithy API error. Bodies that
// are not S3 error documents fall back to the HTTP status text.
func APIError(status int, body []byte) *smithy.GenericAPIError {
	apiErr := &smithy.GenericAPIError{
		Code:    strings.ReplaceAll(http.StatusText(status), " ", ""),
		Message: strings.TrimSpace(string(body)),
		Fault:   smithy.FaultServer,
	}
	if status >= 400 && status < 500 {
		apiErr.Fault = smithy.FaultClient
	}
	if apiErr.Code == "" {
		apiErr.Code = fmt.Sprintf("Status%d", status)
	}

	var doc ErrorResponse
	if RootElement(body) == "Error" && xml.Unmarshal(body, &doc) == nil && doc.Code != "" {
		apiErr.Code = doc.Code
		apiErr.Message = doc.Message
	}
	return apiErr
}

// ReadError drains a failed response and returns its API error.
func ReadError(resp *http.Response) *smithy.GenericAPIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return APIError(resp.StatusCode, body)
}

// Success reports whether status is 2xx.
func Success(status int) bool {
	return status >= 200 && status < 300
}
