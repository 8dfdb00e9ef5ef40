package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Products []Product `json:"products" yaml:"products"`
}

// FileStore serves a catalog loaded from a JSON or YAML file.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	products []Product
	byID     map[string]int
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore wraps an in-memory product list.
func NewStaticStore(products []Product) *FileStore {
	s := &FileStore{}
	s.set(products)
	return s
}

// Reload re-reads the backing file. Static stores have nothing to reload.
func (s *FileStore) Reload() error {
	if s.path == "" {
		return nil
	}
	products, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.set(products)
	return nil
}

func (s *FileStore) set(products []Product) {
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}
	s.mu.Lock()
	s.products = products
	s.byID = byID
	s.mu.Unlock()
}

func (s *FileStore) All(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *FileStore) FindByID(ctx context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := s.products[i]
	return &p, nil
}

// LoadFile parses a catalog file. The format follows the extension; both a
// bare list and an object with a "products" key are accepted.
func LoadFile(path string) ([]Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var products []Product
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		products, err = decode(raw, yaml.Unmarshal)
	default:
		products, err = decode(raw, json.Unmarshal)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func decode(raw []byte, unmarshal func([]byte, any) error) ([]Product, error) {
	var list []Product
	if err := unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped catalogFile
	if err := unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Products, nil
}
