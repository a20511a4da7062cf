// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sets implements the small set type used by the generator's deny lists.
package sets

import (
	"cmp"
	"slices"
	"strings"
)

// Set of comparable keys, backed by `map[T]struct{}`.
type Set[T comparable] map[T]struct{}

// MakeWith creates a Set[T] with the given elements inserted.
func MakeWith[T comparable](elements ...T) Set[T] {
	s := make(Set[T], len(elements))
	s.Insert(elements...)
	return s
}

// Has returns true if Set s has the given key.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// Insert keys into set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// Sorted returns the elements of s in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	keys := make([]T, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// HasPrefixOf returns whether any element of s is a prefix of name.
func HasPrefixOf(s Set[string], name string) bool {
	for prefix := range s {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// HasSubstringOf returns whether any element of s is contained in name.
func HasSubstringOf(s Set[string], name string) bool {
	for sub := range s {
		if strings.Contains(name, sub) {
			return true
		}
	}
	return false
}
