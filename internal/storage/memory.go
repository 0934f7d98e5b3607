package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Memory is an in-process ObjectStore. It backs local development when no
// S3 endpoint is configured, and tests.
type Memory struct {
	mu        sync.RWMutex
	objects   map[string]Object
	publicURL string
}

type Object struct {
	Data        []byte
	ContentType string
}

func NewMemory(publicURL string) *Memory {
	return &Memory{
		objects:   make(map[string]Object),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (m *Memory) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("failed to read object %s: %w", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (m *Memory) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, name)
	}
	delete(m.objects, name)
	return nil
}

func (m *Memory) PublicURL(name string) string {
	return m.publicURL + "/" + name
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Get returns a stored object.
func (m *Memory) Get(name string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[name]
	return obj, ok
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
