package processor

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
)

// Week is a post-count histogram indexed by ISO weekday (Monday = 0) and
// two-hour bucket (00h-01h = 0, ..., 22h-23h = 11).
type Week [7][12]int

// Add counts one post at t, which must already be in the bucketing zone.
func (w *Week) Add(t time.Time) {
	day := (int(t.Weekday()) + 6) % 7
	w[day][t.Hour()/2]++
}

// At returns the count for ISO weekday 1-7 and the bucket starting at hour
// 0, 2, ..., 22.
func (w *Week) At(isoWeekday, hour int) int {
	return w[isoWeekday-1][hour/2]
}

func (w *Week) Total() int {
	n := 0
	for _, day := range w {
		for _, c := range day {
			n += c
		}
	}
	return n
}

// TemporalResult maps user id to weekly activity.
type TemporalResult map[int64]*Week

type datetimeProcessor struct{}

func (datetimeProcessor) Kind() Kind { return KindDatetime }

// Run skips posts without a timestamp.
func (datetimeProcessor) Run(_ context.Context, idx *corpus.Index, opts Options) (any, error) {
	res := TemporalResult{}
	opts.posts(idx, func(_ *corpus.Topic, p *corpus.Post) {
		if p.Timestamp == 0 {
			return
		}
		w, ok := res[p.AuthorID]
		if !ok {
			w = &Week{}
			res[p.AuthorID] = w
		}
		w.Add(time.UnixMilli(p.Timestamp).In(opts.Location))
	})
	return res, nil
}
