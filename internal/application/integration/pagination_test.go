package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainPages_FollowsCursorUntilExhausted(t *testing.T) {
	pages := map[string]*integration.Page[int]{
		"":   {Items: []int{1, 2}, HasMore: true, NextCursor: "c1"},
		"c1": {Items: []int{3}, HasMore: true, NextCursor: "c2"},
		"c2": {Items: []int{4}},
	}
	var cursors []string
	var got []int

	err := drainPages(context.Background(), 2,
		func(_ context.Context, req integration.PageRequest) (*integration.Page[int], error) {
			assert.EqualValues(t, 2, req.Limit)
			cursors = append(cursors, req.Cursor)
			return pages[req.Cursor], nil
		},
		func(v int) error {
			got = append(got, v)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, got)
	assert.Equal(t, []string{"", "c1", "c2"}, cursors)
}

func TestDrainPages_Errors(t *testing.T) {
	t.Run("repeated cursor", func(t *testing.T) {
		err := drainPages(context.Background(), 10,
			func(_ context.Context, req integration.PageRequest) (*integration.Page[int], error) {
				return &integration.Page[int]{Items: []int{1}, HasMore: true, NextCursor: "same"}, nil
			},
			func(int) error { return nil })
		assert.ErrorIs(t, err, ErrRepeatedCursor)
	})

	t.Run("handler error stops paging", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := drainPages(context.Background(), 10,
			func(_ context.Context, req integration.PageRequest) (*integration.Page[int], error) {
				calls++
				return &integration.Page[int]{Items: []int{1}, HasMore: true, NextCursor: "next"}, nil
			},
			func(int) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := drainPages(ctx, 10,
			func(context.Context, integration.PageRequest) (*integration.Page[int], error) {
				t.Fatal("fetch must not run")
				return nil, nil
			},
			func(int) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
