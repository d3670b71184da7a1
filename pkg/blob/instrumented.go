package blob

import (
	"context"
	"time"

	"github.com/marmos91/dittoshare/pkg/metrics"
)

// Instrument wraps s so every call is reported to m under backend.
// A nil m returns s unchanged.
func Instrument(s Store, backend string, m metrics.BlobMetrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{Store: s, backend: backend, m: m}
}

type instrumented struct {
	Store
	backend string
	m       metrics.BlobMetrics
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	s.m.ObserveOperation(s.backend, op, time.Since(start), err)
}

func (s *instrumented) Put(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := s.Store.Put(ctx, key, data)
	s.observe("put", start, err)
	if err == nil {
		s.m.RecordBytes(s.backend, "put", int64(len(data)))
	}
	return err
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := s.Store.Get(ctx, key)
	s.observe("get", start, err)
	if err == nil {
		s.m.RecordBytes(s.backend, "get", int64(len(data)))
	}
	return data, err
}

func (s *instrumented) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := s.Store.Exists(ctx, key)
	s.observe("exists", start, err)
	return ok, err
}

func (s *instrumented) Rename(ctx context.Context, from, to string) error {
	start := time.Now()
	err := s.Store.Rename(ctx, from, to)
	s.observe("rename", start, err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.Store.Delete(ctx, key)
	s.observe("delete", start, err)
	return err
}

func (s *instrumented) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := s.Store.List(ctx, prefix)
	s.observe("list", start, err)
	return keys, err
}
