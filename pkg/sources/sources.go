package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package sources contains listing source configs (YAML/JSON) and the adapters
// that turn a catalog site's paginated HTML into raw listings.

// Source describes one paginated listing site.
type Source struct {
	ID                 string         `json:"id" yaml:"id"`
	Name               string         `json:"name" yaml:"name"`
	Type               string         `json:"type" yaml:"type"`
	BaseURL            string         `json:"base_url" yaml:"base_url"`
	PageParam          string         `json:"page_param" yaml:"page_param"`
	ListSelector       string         `json:"list_selector" yaml:"list_selector"`
	PaginationSelector string         `json:"pagination_selector" yaml:"pagination_selector"`
	FallbackPages      int            `json:"fallback_pages" yaml:"fallback_pages"`
	RequestDelayMs     int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	PauseEvery         int            `json:"pause_every" yaml:"pause_every"`
	PauseMs            int            `json:"pause_ms" yaml:"pause_ms"`
	Config             map[string]any `json:"config" yaml:"config"`
}

const (
	defaultPageParam          = "lcp_page0"
	defaultListSelector       = "#lcp_instance_0 li a, .lcp_catlist li a"
	defaultPaginationSelector = ".lcp_paginator a, .pagination a"
	defaultFallbackPages      = 127
	defaultRequestDelayMs     = 500
	defaultPauseEvery         = 10
	defaultPauseMs            = 2000
)

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Registry holds the sources declared in a config file.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	idx     map[string]Source
}

// LoadRegistry loads the source registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	fileReg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	reg := &Registry{
		sources: make([]Source, len(fileReg.Sources)),
		idx:     make(map[string]Source, len(fileReg.Sources)),
	}
	for i := range fileReg.Sources {
		src := sanitizeSource(fileReg.Sources[i])
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("source[%d]: %w", i, err)
		}
		if _, exists := reg.idx[src.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		reg.sources[i] = src
		reg.idx[src.ID] = src
	}
	return reg, nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s sources: %w", name, err)
	}
	return reg, nil
}

func sanitizeSource(s Source) Source {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	s.PageParam = strings.TrimSpace(s.PageParam)
	s.ListSelector = strings.TrimSpace(s.ListSelector)
	s.PaginationSelector = strings.TrimSpace(s.PaginationSelector)

	if s.Type == "" {
		s.Type = TypeLCPCatlist
	}
	if s.PageParam == "" {
		s.PageParam = defaultPageParam
	}
	if s.ListSelector == "" {
		s.ListSelector = defaultListSelector
	}
	if s.PaginationSelector == "" {
		s.PaginationSelector = defaultPaginationSelector
	}
	if s.FallbackPages <= 0 {
		s.FallbackPages = defaultFallbackPages
	}
	if s.RequestDelayMs <= 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}
	if s.PauseEvery <= 0 {
		s.PauseEvery = defaultPauseEvery
	}
	if s.PauseMs <= 0 {
		s.PauseMs = defaultPauseMs
	}
	if s.Config == nil {
		s.Config = map[string]any{}
	}
	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required for source %q", s.ID)
	}
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is required for source %q", s.ID)
	}
	return nil
}

// ByID returns the source config by id.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Source{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.idx[id]
	return src, ok
}

// All returns all configured sources.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// RequestDelay returns the spacing between consecutive page fetches.
func (s Source) RequestDelay() time.Duration {
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// PauseDuration returns the longer pause inserted every PauseEvery pages.
func (s Source) PauseDuration() time.Duration {
	return time.Duration(s.PauseMs) * time.Millisecond
}
