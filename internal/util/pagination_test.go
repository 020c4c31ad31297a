package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		page, size        int
		wantFrom, wantLim int
	}{
		{name: "first page", page: 1, size: 10, wantFrom: 0, wantLim: 10},
		{name: "third page", page: 3, size: 25, wantFrom: 50, wantLim: 25},
		{name: "zero page", page: 0, size: 10, wantFrom: 0, wantLim: 10},
		{name: "default size", page: 2, size: 0, wantFrom: DefaultPageSize, wantLim: DefaultPageSize},
		{name: "oversized is capped", page: 1, size: 500, wantFrom: 0, wantLim: MaxPageSize},
		{name: "negative size", page: 1, size: -5, wantFrom: 0, wantLim: DefaultPageSize},
		{name: "page past window", page: 1_000_000, size: 100, wantFrom: MaxWindow - 100, wantLim: 100},
		{name: "huge page does not overflow", page: int(^uint(0) >> 1), size: 20, wantFrom: MaxWindow - 20, wantLim: 20},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			from, limit := Offset(tt.page, tt.size)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantLim, limit)
		})
	}
}
