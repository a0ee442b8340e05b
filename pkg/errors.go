package pkg

import "errors"

var (
	ErrUnknownPartition  = errors.New("unknown partition")
	ErrUnknownVertex     = errors.New("unknown vertex")
	ErrUnknownDofGroup   = errors.New("unknown dof group")
	ErrNotYetPartitioned = errors.New("domain not yet partitioned")
	ErrPartitioner       = errors.New("partitioner failed")
	ErrLinkNotSet        = errors.New("model and equation links not set")
	ErrMissingLink       = errors.New("transport link not established")

	// ErrConstraintConflict is reported, never returned as a failure of the assignment itself.
	ErrConstraintConflict = errors.New("conflicting single-point constraints")
)
