package requests

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func articleLine(approved, dispatched int64) Line {
	return Line{Item: ArticleRef(1), Requested: approved, Approved: approved, Dispatched: dispatched}
}

func TestClassifyDispatch(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		lines []Line
		want  DispatchOutcome
	}{
		{
			name: "nothing dispatched yet",
			kind: KindArticle,
			lines: []Line{
				articleLine(5, 0),
				articleLine(3, 0),
			},
			want: DispatchUnchanged,
		},
		{
			name: "some lines pending",
			kind: KindArticle,
			lines: []Line{
				articleLine(5, 5),
				articleLine(3, 1),
			},
			want: DispatchPartial,
		},
		{
			name: "single line partially dispatched",
			kind: KindArticle,
			lines: []Line{
				articleLine(5, 2),
			},
			want: DispatchPartial,
		},
		{
			name: "every line fully dispatched",
			kind: KindArticle,
			lines: []Line{
				articleLine(5, 5),
				articleLine(3, 3),
			},
			want: DispatchFull,
		},
		{
			name:  "no lines at all",
			kind:  KindArticle,
			lines: nil,
			want:  DispatchUnchanged,
		},
		{
			name: "retired lines do not count",
			kind: KindArticle,
			lines: []Line{
				articleLine(5, 5),
				{Item: ArticleRef(2), Requested: 3, Approved: 3, Retired: true},
			},
			want: DispatchFull,
		},
		{
			name: "lines of the other kind do not count",
			kind: KindAsset,
			lines: []Line{
				articleLine(5, 0),
				{Item: AssetRef(7), Requested: 1, Approved: 1, Dispatched: 1},
			},
			want: DispatchFull,
		},
		{
			name: "zero approved lines count as fully dispatched",
			kind: KindArticle,
			lines: []Line{
				{Item: ArticleRef(1), Requested: 5, Approved: 0},
			},
			want: DispatchFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDispatch(tt.kind, tt.lines))
		})
	}
}

func TestClassifyDispatch_Recomputes(t *testing.T) {
	// Classification is derived from counters alone, so running it twice on
	// the same lines gives the same answer.
	lines := []Line{articleLine(5, 2)}
	assert.Equal(t, DispatchPartial, ClassifyDispatch(KindArticle, lines))
	assert.Equal(t, DispatchPartial, ClassifyDispatch(KindArticle, lines))

	lines[0].Dispatched = 5
	assert.Equal(t, DispatchFull, ClassifyDispatch(KindArticle, lines))
}
