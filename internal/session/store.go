// Package session хранит загруженные книги в памяти с истечением по TTL.
package session

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

type Store[T any] struct {
	c *gocache.Cache
}

// New: ttl: время жизни записи с момента последнего Put/Touch.
func New[T any](ttl, cleanup time.Duration) *Store[T] {
	return &Store[T]{c: gocache.New(ttl, cleanup)}
}

// Put сохраняет значение под новым id.
func (s *Store[T]) Put(v T) string {
	id := uuid.NewString()
	s.c.SetDefault(id, v)
	return id
}

func (s *Store[T]) Get(id string) (T, bool) {
	var zero T
	v, ok := s.c.Get(id)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Touch продлевает жизнь записи. Replace атомарен: удалённая между Get
// и продлением запись не воскресает.
func (s *Store[T]) Touch(id string) bool {
	v, ok := s.c.Get(id)
	if !ok {
		return false
	}
	return s.c.Replace(id, v, gocache.DefaultExpiration) == nil
}

func (s *Store[T]) Delete(id string) { s.c.Delete(id) }

func (s *Store[T]) Len() int { return s.c.ItemCount() }
