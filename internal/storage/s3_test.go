package storage

import (
	"context"
	"encoding/xml"
	"errors"
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
)

type fakeObject struct {
	data     []byte
	modified time.Time
}

// fakeS3 is an in-memory bucket speaking enough of the S3 REST API for
// the minio client.
type fakeS3 struct {
	bucket string

	mu       sync.Mutex
	objects  map[string]fakeObject
	denyList bool
}

type listContents struct {
	Key          string
	LastModified string
	ETag         string
	Size         int64
	StorageClass string
}

type listResult struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string
	Prefix      string
	KeyCount    int
	MaxKeys     int
	IsTruncated bool
	Contents    []listContents
}

func newFakeS3(t *testing.T, bucket string) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{bucket: bucket, objects: make(map[string]fakeObject)}
	srv := httptest.NewTLSServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) put(key string, data string, modified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: []byte(data), modified: modified}
}

func (f *fakeS3) get(key string) (fakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	return obj, ok
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != f.bucket {
		s3Error(w, r, http.StatusNotFound, "NoSuchBucket")
		return
	}
	if key == "" {
		f.serveBucket(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			s3Error(w, r, http.StatusBadRequest, "IncompleteBody")
			return
		}
		f.put(key, string(data), time.Now())
		w.Header().Set("ETag", `"fake"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead, http.MethodGet:
		obj, ok := f.get(key)
		if !ok {
			s3Error(w, r, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Last-Modified", obj.modified.UTC().Format(http.TimeFormat))
		w.Header().Set("ETag", `"fake"`)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.data)
		}
	case http.MethodDelete:
		f.mu.Lock()
		delete(f.objects, key)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		s3Error(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func (f *fakeS3) serveBucket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && q.Has("location"):
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
	case r.Method == http.MethodGet && q.Get("list-type") == "2":
		f.serveList(w, r, q)
	default:
		s3Error(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func (f *fakeS3) serveList(w http.ResponseWriter, r *http.Request, q url.Values) {
	f.mu.Lock()
	deny := f.denyList
	f.mu.Unlock()
	if deny {
		s3Error(w, r, http.StatusForbidden, "AccessDenied")
		return
	}

	prefix, delim := q.Get("prefix"), q.Get("delimiter")
	res := listResult{Name: f.bucket, Prefix: prefix, MaxKeys: 1000}

	f.mu.Lock()
	for key, obj := range f.objects {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || (delim != "" && strings.Contains(rest, delim)) {
			continue
		}
		res.Contents = append(res.Contents, listContents{
			Key:          key,
			LastModified: obj.modified.UTC().Format("2006-01-02T15:04:05.000Z"),
			ETag:         `"fake"`,
			Size:         int64(len(obj.data)),
			StorageClass: "STANDARD",
		})
	}
	f.mu.Unlock()
	sort.Slice(res.Contents, func(i, j int) bool { return res.Contents[i].Key < res.Contents[j].Key })
	res.KeyCount = len(res.Contents)

	w.Header().Set("Content-Type", "application/xml")
	_ = xml.NewEncoder(w).Encode(res)
}

func s3Error(w http.ResponseWriter, r *http.Request, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, "<Error><Code>"+code+"</Code><Message>"+code+"</Message><Resource>"+r.URL.Path+"</Resource></Error>")
}

func newTestS3Store(t *testing.T, srv *httptest.Server, bucket string) (*S3Store, error) {
	t.Helper()
	return NewS3Store(context.Background(), S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "https://"),
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    bucket,
		Region:    "us-east-1",
		Prefix:    "/audio/",
		Secure:    true,
		Transport: srv.Client().Transport,
	})
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	f, srv := newFakeS3(t, "lingo")
	s, err := newTestS3Store(t, srv, "lingo")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Save(ctx, "lesson.mp3", strings.NewReader("ID3-lesson"), 10); err != nil {
		t.Fatal(err)
	}
	if obj, ok := f.get("audio/lesson.mp3"); !ok || string(obj.data) != "ID3-lesson" {
		t.Fatalf("object not stored under the prefix: %+v", f.objects)
	}

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	f.put("audio/older.mp3", "ID3", old)
	f.put("audio/notes.txt", "ignored", old)
	f.put("audio/nested/deep.mp3", "ID3", old)
	f.put("other/outside.mp3", "ID3", old)

	files, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %+v", files)
	}
	if files[0].Filename != "lesson.mp3" || files[1].Filename != "older.mp3" {
		t.Errorf("expected newest first, got %+v", files)
	}
	if files[1].Size != 3 || files[1].Created != old.Unix() {
		t.Errorf("unexpected info %+v", files[1])
	}

	rc, info, err := s.Open(ctx, "lesson.mp3")
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ID3-lesson" || info.Size != 10 || info.Filename != "lesson.mp3" {
		t.Errorf("Open = %q %+v", data, info)
	}

	if _, _, err := s.Open(ctx, "missing.mp3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Open(ctx, "../lesson.mp3"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}

	if err := s.Delete(ctx, "lesson.mp3"); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.get("audio/lesson.mp3"); ok {
		t.Error("object still present after Delete")
	}
	if err := s.Delete(ctx, "lesson.mp3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestS3StoreListError(t *testing.T) {
	f, srv := newFakeS3(t, "lingo")
	s, err := newTestS3Store(t, srv, "lingo")
	if err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	f.denyList = true
	f.mu.Unlock()

	if _, err := s.List(context.Background()); err == nil {
		t.Fatal("expected a listing error")
	}
}

func TestNewS3Store(t *testing.T) {
	_, srv := newFakeS3(t, "lingo")
	if _, err := newTestS3Store(t, srv, "missing"); err == nil {
		t.Error("expected an error for a missing bucket")
	}
	if _, err := NewS3Store(context.Background(), S3Config{Bucket: "lingo"}); err == nil {
		t.Error("expected an error without an endpoint")
	}
}
