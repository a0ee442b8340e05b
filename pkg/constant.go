package pkg

import "math"

const (
	// partition ids start at 1, 0 means the model has no main partition
	NO_MAIN_PARTITION    = 0
	INVALID_PARTITION_ID = -1
	FIRST_PARTITION_ID   = 1
)

// equation slot markers stored in a dof group before/instead of an equation number
const (
	EQN_UNASSIGNED  = -1
	EQN_FIXED       = -2
	EQN_NUMBER_LAST = -3
)

const (
	DEFAULT_PENALTY_VALUE        = 1e12
	DEFAULT_PENALTY_ORDER_OFFSET = 3.0
	DEFAULT_FACTOR_GREATER       = 1.0
	DEFAULT_NUM_RELEASES         = 1

	INERTIAL_BISECTION_DIRECTIONS = 8
	DEFAULT_PARTITIONER_SEED      = 42
)

const (
	// share of the vertices taken as sources (low end of the projection) and sinks (high end)
	INERTIAL_FLOW_SOURCE_SINK_RATE = 0.4
	// largest accepted |side weight - target| of a flow cut, as a share of the total weight
	INERTIAL_FLOW_BALANCE_TOLERANCE = 0.1
	INVALID_LEVEL                   = math.MaxInt
)

const (
	DEFAULT_SUBJECT_PREFIX = "partitioner.numberer"
)
