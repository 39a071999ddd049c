package simulate

import "time"

// Defaults applied by Run when the config leaves a field zero.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultWorkers      = 4

	maxErrorBody = 2 << 10
)
