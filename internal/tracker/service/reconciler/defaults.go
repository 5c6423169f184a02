package reconciler

import "time"

const (
	defaultPollInterval      = 5 * time.Second
	defaultFailureBackoff    = 30 * time.Second
	defaultFetchTimeout      = 15 * time.Second
	defaultMaxFetchFailures  = 5
	defaultConfirmationDepth = 6
	defaultMaxReorgDepth     = 100
)
