package testsupport

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeS3 is an in-process S3 compatible endpoint that understands the
// multipart calls uplink makes. Only path style addressing is supported.
type FakeS3 struct {
	server *httptest.Server
	bucket string

	mu         sync.Mutex
	nextID     int
	uploads    map[string]*s3Upload
	objects    map[string][]byte
	operations []string
	failParts  map[int]int
}

type s3Upload struct {
	key   string
	parts map[int][]byte
}

type initiateMultipartUploadResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	UploadID string   `xml:"UploadId"`
}

type completeMultipartUpload struct {
	Parts []struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
	} `xml:"Part"`
}

type completeMultipartUploadResult struct {
	XMLName  xml.Name `xml:"CompleteMultipartUploadResult"`
	Location string   `xml:"Location"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	ETag     string   `xml:"ETag"`
}

type s3Error struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// NewFakeS3 starts a fake endpoint serving bucket. It shuts down with the test.
func NewFakeS3(t testing.TB, bucket string) *FakeS3 {
	t.Helper()
	f := &FakeS3{
		bucket:    bucket,
		uploads:   make(map[string]*s3Upload),
		objects:   make(map[string][]byte),
		failParts: make(map[int]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the endpoint base URL.
func (f *FakeS3) URL() string { return f.server.URL }

// Object returns the content of a completed upload.
func (f *FakeS3) Object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}

// OpenUploads returns how many multipart uploads are neither completed nor aborted.
func (f *FakeS3) OpenUploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// Operations lists the handled operations in arrival order.
func (f *FakeS3) Operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.operations)
}

// FailPart makes the next upload of part number answer with status.
func (f *FakeS3) FailPart(number, status int) {
	f.mu.Lock()
	f.failParts[number] = status
	f.mu.Unlock()
}

func (f *FakeS3) serve(w http.ResponseWriter, r *http.Request) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if !ok || key == "" {
		writeS3Error(w, http.StatusBadRequest, "InvalidRequest", "path style object URL required")
		return
	}
	if bucket != f.bucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket", bucket)
		return
	}
	query := r.URL.Query()
	switch {
	case r.Method == http.MethodPost && query.Has("uploads"):
		f.createUpload(w, key)
	case r.Method == http.MethodPut && query.Has("uploadId") && query.Has("partNumber"):
		f.uploadPart(w, r, key, query.Get("uploadId"), query.Get("partNumber"))
	case r.Method == http.MethodPost && query.Has("uploadId"):
		f.completeUpload(w, r, key, query.Get("uploadId"))
	case r.Method == http.MethodDelete && query.Has("uploadId"):
		f.abortUpload(w, key, query.Get("uploadId"))
	default:
		writeS3Error(w, http.StatusNotImplemented, "NotImplemented", r.Method+" "+r.URL.RawQuery)
	}
}

func (f *FakeS3) createUpload(w http.ResponseWriter, key string) {
	f.mu.Lock()
	f.nextID++
	uploadID := fmt.Sprintf("fake-upload-%d", f.nextID)
	f.uploads[uploadID] = &s3Upload{key: key, parts: make(map[int][]byte)}
	f.operations = append(f.operations, "CreateMultipartUpload")
	f.mu.Unlock()

	writeXML(w, http.StatusOK, initiateMultipartUploadResult{Bucket: f.bucket, Key: key, UploadID: uploadID})
}

func (f *FakeS3) uploadPart(w http.ResponseWriter, r *http.Request, key, uploadID, partNumber string) {
	number, err := strconv.Atoi(partNumber)
	if err != nil || number < 1 {
		writeS3Error(w, http.StatusBadRequest, "InvalidArgument", "bad part number "+partNumber)
		return
	}
	data, err := readPayload(r)
	if err != nil {
		writeS3Error(w, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.operations = append(f.operations, fmt.Sprintf("UploadPart %d", number))
	if status, ok := f.failParts[number]; ok {
		delete(f.failParts, number)
		writeS3Error(w, status, "InjectedFailure", fmt.Sprintf("part %d rejected", number))
		return
	}
	upload, ok := f.uploads[uploadID]
	if !ok || upload.key != key {
		writeS3Error(w, http.StatusNotFound, "NoSuchUpload", uploadID)
		return
	}
	upload.parts[number] = data
	w.Header().Set("ETag", md5ETag(data))
	w.WriteHeader(http.StatusOK)
}

func (f *FakeS3) completeUpload(w http.ResponseWriter, r *http.Request, key, uploadID string) {
	var req completeMultipartUpload
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		writeS3Error(w, http.StatusBadRequest, "MalformedXML", err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.operations = append(f.operations, "CompleteMultipartUpload")
	upload, ok := f.uploads[uploadID]
	if !ok || upload.key != key {
		writeS3Error(w, http.StatusNotFound, "NoSuchUpload", uploadID)
		return
	}
	var object bytes.Buffer
	last := 0
	for _, part := range req.Parts {
		if part.PartNumber <= last {
			writeS3Error(w, http.StatusBadRequest, "InvalidPartOrder", "parts must be ascending")
			return
		}
		last = part.PartNumber
		data, ok := upload.parts[part.PartNumber]
		if !ok || strings.Trim(md5ETag(data), `"`) != strings.Trim(part.ETag, `"`) {
			writeS3Error(w, http.StatusBadRequest, "InvalidPart", fmt.Sprintf("part %d", part.PartNumber))
			return
		}
		object.Write(data)
	}
	f.objects[key] = object.Bytes()
	delete(f.uploads, uploadID)

	writeXML(w, http.StatusOK, completeMultipartUploadResult{
		Location: f.server.URL + "/" + f.bucket + "/" + key,
		Bucket:   f.bucket,
		Key:      key,
		ETag:     md5ETag(object.Bytes()),
	})
}

func (f *FakeS3) abortUpload(w http.ResponseWriter, key, uploadID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operations = append(f.operations, "AbortMultipartUpload")
	upload, ok := f.uploads[uploadID]
	if !ok || upload.key != key {
		writeS3Error(w, http.StatusNotFound, "NoSuchUpload", uploadID)
		return
	}
	delete(f.uploads, uploadID)
	w.WriteHeader(http.StatusNoContent)
}

// readPayload returns the request body, unwrapping aws-chunked framing used
// by streaming signatures.
func readPayload(r *http.Request) ([]byte, error) {
	if strings.Contains(r.Header.Get("Content-Encoding"), "aws-chunked") ||
		strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return decodeAWSChunked(r.Body)
	}
	return io.ReadAll(r.Body)
}

func decodeAWSChunked(body io.Reader) ([]byte, error) {
	reader := bufio.NewReader(body)
	var out bytes.Buffer
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		sizeField, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeField, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parse chunk size %q: %w", sizeField, err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, reader, size); err != nil {
			return nil, fmt.Errorf("read chunk: %w", err)
		}
		if _, err := reader.Discard(2); err != nil {
			return nil, fmt.Errorf("read chunk terminator: %w", err)
		}
	}
}

func writeXML(w http.ResponseWriter, status int, v any) {
	data, err := xml.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(data)
}

func writeS3Error(w http.ResponseWriter, status int, code, message string) {
	writeXML(w, status, s3Error{Code: code, Message: message})
}

func md5ETag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
