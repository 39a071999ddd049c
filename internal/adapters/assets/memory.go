package assets

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStore keeps assets in process and serves them over HTTP.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	baseURL string
}

// NewMemoryStore creates a store whose URLs start with baseURL, e.g.
// "http://localhost:9080/assets".
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memObject),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyData
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.objects[key] = memObject{data: cp, contentType: contentType, modified: time.Now()}
	m.mu.Unlock()
	return m.baseURL + "/" + key, nil
}

// Get returns a copy of the asset stored under key.
func (m *MemoryStore) Get(key string) ([]byte, string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, "", err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, "", ErrNotFound
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, obj.contentType, nil
}

// Len returns how many assets are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Handler serves assets. Mount it with the URL prefix stripped.
func (m *MemoryStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		key, err := cleanKey(r.URL.Path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		m.mu.RLock()
		obj, ok := m.objects[key]
		m.mu.RUnlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("Last-Modified", obj.modified.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.data)
		}
	})
}
