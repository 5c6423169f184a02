package archiver

import "time"

const (
	defaultWorkerCount = 4

	exportChunkSize uint64 = 1000

	sleepDuration     = 5 * time.Second
	idleSleepDuration = 30 * time.Second

	entryBatcherCapacity      = 250
	entryBatcherFlushInterval = 5 * time.Second
	entryBatcherRPS           = 10
)
