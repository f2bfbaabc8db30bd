package detektor

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

type namedCount struct{ Count int }

func (namedCount) TopicStateID() TopicStateID { return 7 }

type namedFlag struct{ On bool }

func (namedFlag) TopicStateID() TopicStateID { return 8 }

func TestStateSnapshot(t *testing.T) {
	t.Run("anonymous states are dropped", func(t *testing.T) {
		s := NewStateSnapshot([]TopicState{namedCount{Count: 1}, temperatureSample{Celsius: 3}})
		assert.Equal(t, 1, s.Len())
		_, ok := SnapshotState[temperatureSample](s)
		assert.False(t, ok)
	})

	t.Run("later states override earlier ones", func(t *testing.T) {
		s := NewStateSnapshot([]TopicState{namedCount{Count: 1}})
		s2 := s.next([]TopicState{namedCount{Count: 2}, namedFlag{On: true}})

		c, ok := SnapshotState[namedCount](s2)
		assert.True(t, ok)
		assert.Equal(t, 2, c.Count)
		f, ok := SnapshotState[namedFlag](s2)
		assert.True(t, ok)
		assert.True(t, f.On)

		// The previous snapshot is untouched.
		c, _ = SnapshotState[namedCount](s)
		assert.Equal(t, 1, c.Count)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("versions increment", func(t *testing.T) {
		s := NewStateSnapshot(nil)
		assert.Equal(t, uint64(1), s.Version())
		assert.Equal(t, uint64(2), s.next(nil).Version())
	})
}

func TestGraphStateStore(t *testing.T) {
	t.Run("empty store yields empty snapshot", func(t *testing.T) {
		store := NewGraphStateStore()
		last := store.LastState()
		assert.NotZero(t, last)
		assert.Equal(t, 0, last.Len())
	})

	t.Run("snapshots accumulate across evaluations", func(t *testing.T) {
		store := NewGraphStateStore()
		store.TakeNewSnapshot([]TopicState{namedCount{Count: 1}})
		store.TakeNewSnapshot([]TopicState{namedFlag{On: true}})

		last := store.LastState()
		assert.Equal(t, 2, last.Len())
		c, ok := SnapshotState[namedCount](last)
		assert.True(t, ok)
		assert.Equal(t, 1, c.Count)
	})

	t.Run("resume replays through the input pipeline", func(t *testing.T) {
		// Build state in one graph...
		store := NewGraphStateStore()
		store.TakeNewSnapshot([]TopicState{namedCount{Count: 41}})

		// ...and resume it in a fresh one.
		g := New()
		var recovered int
		d := struct{}{}
		n := NewDetector(g, d)
		MustSubscribe(n, func(r ResumeFromSnapshot) {
			if c, ok := SnapshotState[namedCount](r.Snapshot); ok {
				recovered = c.Count
			}
		})

		assert.NoError(t, PushData(g, ResumeFromSnapshot{Snapshot: store.LastState()}))
		assert.NoError(t, g.Evaluate())
		assert.Equal(t, 41, recovered)
	})
}
