// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
)

// MemoryClient is an in-memory Client for testing. It records physical
// writes so tests can assert that duplicate content never transfers twice.
type MemoryClient struct {
	mu           sync.Mutex
	objects      map[string]memoryObject
	putCalls     int
	presignCalls int
}

type memoryObject struct {
	data []byte
	meta map[string]string
}

// NewMemoryClient creates an empty in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{objects: make(map[string]memoryObject)}
}

// PutCalls returns how many physical writes were performed.
func (m *MemoryClient) PutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putCalls
}

// Seed stores an object directly, bypassing the put-call counter. Useful for
// simulating objects written by earlier deployments.
func (m *MemoryClient) Seed(bucket, key string, data []byte, meta map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = memoryObject{data: data, meta: meta}
}

// Metadata returns the stored user metadata for an object, or nil.
func (m *MemoryClient) Metadata(bucket, key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[bucket+"/"+key]; ok {
		return obj.meta
	}
	return nil
}

func (m *MemoryClient) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	m.objects[bucket+"/"+key] = memoryObject{data: data, meta: opts.UserMetadata}
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (m *MemoryClient) StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[bucket+"/"+key]; ok {
		return minio.ObjectInfo{Key: key}, nil
	}
	return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
}

func (m *MemoryClient) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryClient) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	m.mu.Lock()
	entries := make([]minio.ObjectInfo, 0, len(m.objects))
	for path, obj := range m.objects {
		b, key, _ := strings.Cut(path, "/")
		if b != bucket {
			continue
		}
		entries = append(entries, minio.ObjectInfo{Key: key, UserMetadata: obj.meta})
	}
	m.mu.Unlock()

	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for _, e := range entries {
			ch <- e
		}
	}()
	return ch
}

func (m *MemoryClient) PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	m.mu.Lock()
	m.presignCalls++
	m.mu.Unlock()
	return url.Parse(fmt.Sprintf("https://signed.example/%s/%s?sig=abc", bucket, key))
}
