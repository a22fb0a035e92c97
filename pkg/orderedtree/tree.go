// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orderedtree provides a generic, insertion-only binary search tree.
//
// The tree keeps values of any totally ordered type in sorted structural
// order. Each subtree is either empty or a node that exclusively owns its
// two children, so the structure is a strict tree: no sharing, no cycles,
// and destroying the root releases every descendant.
//
// Equal values route LEFT on insertion. Duplicates therefore accumulate in
// the left subtree of the first-inserted equal element, and in-order
// traversal yields equal elements in reverse insertion order. This is a
// deliberate, tested contract, not an accident of implementation.
//
// The tree does not self-balance. Sorted input degrades it to a linear
// chain; insertion still works, only the depth bound suffers. A one-shot
// slog warning fires when a large tree drifts far from balanced height.
//
// # Basic Usage
//
//	t := orderedtree.New[string]()
//	t.Add("Mercury")
//	t.Add("Venus")
//	for v := range t.InOrder() {
//	    fmt.Println(v)  // Mercury, Venus
//	}
//
// Thread Safety: NOT safe for concurrent use. Callers that share a tree
// across goroutines must serialize all access externally.
package orderedtree

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math/bits"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sentinel errors for tree construction.
var (
	ErrNilCompare = errors.New("compare function must not be nil")
)

var treeTracer = otel.Tracer("orderedtree")

const (
	// buildContextCheckInterval is how many inserts a bulk build performs
	// between context cancellation checks.
	buildContextCheckInterval = 1000

	// depthWarnMinSize is the minimum tree size before depth diagnostics
	// apply. Small trees are allowed any shape silently.
	depthWarnMinSize = 1024

	// depthWarnFactor scales the balanced height ceil(log2(n+1)); a tree
	// taller than factor times that triggers the one-shot warning.
	depthWarnFactor = 4
)

// =============================================================================
// Tree
// =============================================================================

// node is one occupied subtree slot. A nil *node is the empty subtree.
//
// Each node exclusively owns its children: a subtree has exactly one
// parent pointer into it (or the Tree root), never two.
type node[T any] struct {
	element     T
	left, right *node[T]
}

// Tree is an ordered, comparison-keyed binary search tree.
//
// Invariants:
//   - For every node, all elements in left are <= element and all
//     elements in right are > element under the tree's comparator.
//   - Subtrees transition empty -> occupied exactly once; there is no
//     deletion, so the tree grows monotonically.
//   - size and height are exact (insertion-only makes height tracking
//     during Add precise; no rebalancing ever shortens a path).
//
// The zero value is not usable; construct with New, NewFunc, or the
// bulk constructors.
//
// Thread Safety: NOT safe for concurrent use (see package doc).
type Tree[T any] struct {
	root    *node[T]
	compare func(a, b T) int // three-way total order over T

	size   int  // elements inserted
	height int  // nodes on the longest root-to-leaf path
	warned bool // depth warning already emitted
}

// New creates an empty tree ordered by cmp.Compare.
func New[T cmp.Ordered]() *Tree[T] {
	return &Tree[T]{compare: cmp.Compare[T]}
}

// NewFunc creates an empty tree ordered by a caller-supplied comparator.
//
// Description:
//
//	The comparator must implement a three-way total order: negative when
//	a < b, zero when a == b, positive when a > b. An inconsistent
//	comparator yields an unspecified (but memory-safe) tree shape; that
//	contract is the caller's, not checked at runtime.
//
// Inputs:
//   - compare: Three-way comparison over T. Must not be nil.
//
// Outputs:
//   - *Tree[T]: Empty tree. Never nil on success.
//   - error: ErrNilCompare if compare is nil.
func NewFunc[T any](compare func(a, b T) int) (*Tree[T], error) {
	if compare == nil {
		return nil, ErrNilCompare
	}
	return &Tree[T]{compare: compare}, nil
}

// Add inserts value into the tree.
//
// Description:
//
//	Walks an exclusive handle to the current subtree slot: an empty slot
//	is overwritten with a fresh node holding value and two empty
//	children, an occupied slot routes the walk into its left child when
//	value <= element and its right child otherwise. Equal values route
//	left (the tie-break contract, see package doc).
//
// Algorithm:
//
//	Time:  O(depth) - O(log N) expected for random input, O(N) worst
//	       case on sorted/adversarial input (accepted, no rebalancing).
//	Space: O(1) - exactly one node allocated, iterative walk.
//
// Add is total: it cannot fail for any T the comparator accepts, and it
// returns nothing.
//
// Thread Safety: NOT safe for concurrent use.
func (t *Tree[T]) Add(value T) {
	slot := &t.root
	depth := 1
	for *slot != nil {
		n := *slot
		if t.compare(value, n.element) <= 0 {
			slot = &n.left
		} else {
			slot = &n.right
		}
		depth++
	}
	*slot = &node[T]{element: value}
	t.size++
	if depth > t.height {
		t.height = depth
	}
	t.maybeWarnDepth()
}

// InOrder returns a lazy in-order sequence over the tree's elements.
//
// The sequence visits left subtree, node, right subtree, so elements
// arrive in non-decreasing order. It is restartable and non-mutating:
// ranging over it any number of times, or breaking out early, leaves the
// tree untouched. Elements inserted after InOrder is called are visible
// to sequences started afterwards.
//
// Thread Safety: NOT safe for concurrent use, including concurrently
// with Add.
func (t *Tree[T]) InOrder() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.root.inOrder(yield)
	}
}

// inOrder pushes the subtree's elements to yield; false stops the walk.
func (n *node[T]) inOrder(yield func(T) bool) bool {
	if n == nil {
		return true
	}
	return n.left.inOrder(yield) && yield(n.element) && n.right.inOrder(yield)
}

// Len returns the number of elements inserted into the tree.
func (t *Tree[T]) Len() int {
	return t.size
}

// Height returns the number of nodes on the longest root-to-leaf path.
//
// 0 for an empty tree, 1 for a single node. A perfectly unbalanced tree
// of N elements has height N.
func (t *Tree[T]) Height() int {
	return t.height
}

// maybeWarnDepth emits a one-shot warning when a large tree has drifted
// far from balanced height (the accepted sorted-input degradation).
func (t *Tree[T]) maybeWarnDepth() {
	if t.warned || t.size < depthWarnMinSize {
		return
	}
	balanced := bits.Len(uint(t.size)) // ceil(log2(size+1))
	if t.height <= depthWarnFactor*balanced {
		return
	}
	t.warned = true
	slog.Warn("ordered tree degenerating toward a linear chain",
		slog.Int("size", t.size),
		slog.Int("height", t.height),
		slog.Int("balanced_height", balanced),
	)
}

// =============================================================================
// Bulk Construction
// =============================================================================

// NewFromSlice builds a tree from values, ordered by cmp.Compare.
//
// See NewFromSliceFunc for semantics; this is the cmp.Ordered shorthand.
func NewFromSlice[T cmp.Ordered](ctx context.Context, values []T) (*Tree[T], error) {
	return NewFromSliceFunc(ctx, values, cmp.Compare[T])
}

// NewFromSliceFunc builds a tree by inserting values in slice order.
//
// Description:
//
//	Equivalent to NewFunc followed by one Add per element, preserving
//	slice order (and therefore the left-routing tie-break among equal
//	values). Context cancellation is checked periodically so a large
//	build can be abandoned; a partially built tree is never returned.
//
// Algorithm:
//
//	Time:  O(N log N) expected, O(N^2) worst case on sorted input.
//	Space: O(N) - one node per element.
//
// Inputs:
//   - ctx: Context for cancellation and tracing. Must not be nil.
//   - values: Elements to insert, in order. May be empty.
//   - compare: Three-way total order over T. Must not be nil.
//
// Outputs:
//   - *Tree[T]: Tree containing every element of values. Never nil on
//     success.
//   - error: Non-nil if ctx or compare is nil, or if ctx was cancelled
//     mid-build.
//
// Example:
//
//	t, err := orderedtree.NewFromSlice(ctx, []int{5, 3, 8, 3, 1})
//	if err != nil {
//	    return fmt.Errorf("build ordered tree: %w", err)
//	}
//	sorted := slices.Collect(t.InOrder())  // [1 3 3 5 8]
//
// Thread Safety: Safe for concurrent use with different value slices.
func NewFromSliceFunc[T any](ctx context.Context, values []T, compare func(a, b T) int) (*Tree[T], error) {
	if ctx == nil {
		return nil, errors.New("ctx must not be nil")
	}
	if compare == nil {
		return nil, ErrNilCompare
	}

	ctx, span := treeTracer.Start(ctx, "orderedtree.NewFromSliceFunc",
		trace.WithAttributes(
			attribute.Int("size", len(values)),
		),
	)
	defer span.End()

	start := time.Now()

	t := &Tree[T]{compare: compare}
	for i, v := range values {
		if i%buildContextCheckInterval == 0 {
			select {
			case <-ctx.Done():
				err := fmt.Errorf("build cancelled: %w", ctx.Err())
				span.RecordError(err)
				span.SetStatus(codes.Error, "build cancelled")
				return nil, err
			default:
			}
		}
		t.Add(v)
	}

	buildTime := time.Since(start)
	span.SetAttributes(
		attribute.Int("height", t.height),
		attribute.Int64("build_time_us", buildTime.Microseconds()),
	)

	slog.Info("ordered tree constructed",
		slog.Int("size", t.size),
		slog.Int("height", t.height),
		slog.Duration("build_time", buildTime))

	span.SetStatus(codes.Ok, "ordered tree constructed")
	return t, nil
}
