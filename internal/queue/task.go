package queue

type TaskType string

const (
	// TaskTypeSignal correlates one freshly ingested signal.
	TaskTypeSignal TaskType = "signal"
	// TaskTypeBatch runs a grouping pass over recent signals.
	TaskTypeBatch TaskType = "correlate_batch"
	// TaskTypeSeedFixes (re)embeds the historical fix corpus.
	TaskTypeSeedFixes TaskType = "seed_fixes"
)
