package domain

import (
	"strings"
	"time"
)

// Rank is the total order over ledger legs. It is derived only from
// attributes fixed at insert time, so a given set of legs always sorts
// the same way regardless of physical insertion order. The checkpoint
// mechanism depends on exactly this: a checkpoint records the rank of the
// last folded leg, and the delta query selects everything strictly after
// it.
//
// Components, most significant first:
//   - TimeBucket: CreatedAt coarsened to a fixed window, absorbing clock
//     and replication jitter between producers.
//   - GroupID: legs of one economic event stay adjacent within a bucket.
//   - KindPriority: principal legs precede their fee/tip/debt legs.
//   - DirectionPriority: DEBIT before CREDIT.
//   - EntryID: final tie-break between e.g. two fee legs of one group.
type Rank struct {
	TimeBucket        int64
	GroupID           string
	KindPriority      int
	DirectionPriority int
	EntryID           string
}

// DirectionPriorityOf returns the ordering slot for a direction.
func DirectionPriorityOf(d Direction) int {
	if d == Debit {
		return 0
	}

	return 1
}

// TimeBucketOf coarsens t to the given bucket width.
func TimeBucketOf(t time.Time, width time.Duration) int64 {
	return t.UTC().Truncate(width).Unix()
}

// RankOf computes the rank of a leg for the given bucket width.
func RankOf(e *LedgerEntry, width time.Duration) Rank {
	return Rank{
		TimeBucket:        TimeBucketOf(e.CreatedAt, width),
		GroupID:           e.GroupID,
		KindPriority:      e.Kind.Traits().Priority,
		DirectionPriority: DirectionPriorityOf(e.Direction),
		EntryID:           e.ID,
	}
}

// ZeroRank sorts before every real rank; a checkpoint at ZeroRank has
// folded nothing.
func ZeroRank() Rank {
	return Rank{}
}

// IsZero reports whether the rank is the pre-history sentinel.
func (r Rank) IsZero() bool {
	return r == Rank{}
}

// Compare returns -1, 0 or 1 ordering r against other.
func (r Rank) Compare(other Rank) int {
	if r.TimeBucket != other.TimeBucket {
		if r.TimeBucket < other.TimeBucket {
			return -1
		}

		return 1
	}

	if c := strings.Compare(r.GroupID, other.GroupID); c != 0 {
		return c
	}

	if r.KindPriority != other.KindPriority {
		if r.KindPriority < other.KindPriority {
			return -1
		}

		return 1
	}

	if r.DirectionPriority != other.DirectionPriority {
		if r.DirectionPriority < other.DirectionPriority {
			return -1
		}

		return 1
	}

	return strings.Compare(r.EntryID, other.EntryID)
}

// Less reports whether r sorts strictly before other.
func (r Rank) Less(other Rank) bool {
	return r.Compare(other) < 0
}
