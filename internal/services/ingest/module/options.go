package module

import (
	"time"

	"punchcard/internal/platform/config"
	"punchcard/internal/services/ingest/service"
)

// Options configure the ingest module
type Options struct {
	// DedupWindowSeconds is the fingerprint time-bucket width
	DedupWindowSeconds int

	// MinSimilarity gates evaluation; events below it are stored only
	MinSimilarity float64

	// Serialization picks how same-employee races are handled
	Serialization string

	// Deadline is the whole-ingest budget
	Deadline time.Duration

	// Retries bounds transient retry attempts
	Retries int

	// SnapshotsLocal makes fingerprints hash local snapshot bytes; leave
	// false when snapshots live in remote object storage
	SnapshotsLocal bool
}

// FromConfig reads module options from the environment
func FromConfig(cfg config.Conf) Options {
	ic := cfg.Prefix("CORE_INGEST_")
	return Options{
		DedupWindowSeconds: ic.MayInt("DEDUP_WINDOW_SECONDS", 300),
		MinSimilarity:      ic.MayFloat64("MIN_SIMILARITY", 0.60),
		Serialization: ic.MayEnum("COOLDOWN_SERIALIZATION",
			service.SerializationLock, service.SerializationLock, service.SerializationRecheck),
		Deadline:       time.Duration(ic.MayInt("DEADLINE_MS", 5000)) * time.Millisecond,
		Retries:        ic.MayInt("RETRIES", 3),
		SnapshotsLocal: ic.MayBool("SNAPSHOTS_LOCAL", false),
	}
}
