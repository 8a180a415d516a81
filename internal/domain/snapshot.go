package domain

// Snapshot is one delivery of a live subscription: the complete current
// result set, never a diff. Err is set when the subscription failed, in which
// case Items is empty and no further snapshots follow.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

func (s Snapshot[T]) Failed() bool {
	return s.Err != nil
}
