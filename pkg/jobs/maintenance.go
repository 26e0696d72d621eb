package jobs

import (
	"context"
	"database/sql"

	"github.com/platinummonkey/carebase/pkg/observability"
)

// Job names
const (
	JobRevocationPurge = "revocation_purge"
	JobDBStats         = "db_stats"
	JobLimiterCleanup  = "limiter_cleanup"
)

// Purger deletes revocation entries whose token has expired
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// RevocationPurge removes expired rows from a persistent revocation store
func RevocationPurge(schedule string, purger Purger, logger *observability.Logger) Job {
	return Job{
		Name:     JobRevocationPurge,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := purger.Purge(ctx)
			if err != nil {
				return err
			}
			if n > 0 && logger != nil {
				logger.WithField("purged", n).Info("Purged expired revocations")
			}
			return nil
		},
	}
}

// StatsSource reports connection pool statistics
type StatsSource interface {
	Stats() sql.DBStats
}

// StatsSink receives pool statistics
type StatsSink interface {
	RecordDBStats(stats sql.DBStats)
}

// DBStats samples the primary pool into the metrics gauges
func DBStats(schedule string, source StatsSource, sink StatsSink) Job {
	return Job{
		Name:     JobDBStats,
		Schedule: schedule,
		Run: func(context.Context) error {
			sink.RecordDBStats(source.Stats())
			return nil
		},
	}
}

// Cleaner evicts idle limiter state
type Cleaner interface {
	Cleanup() int
}

// LimiterCleanup evicts idle buckets of the in-memory account limiters
func LimiterCleanup(schedule string, logger *observability.Logger, cleaners ...Cleaner) Job {
	return Job{
		Name:     JobLimiterCleanup,
		Schedule: schedule,
		Run: func(context.Context) error {
			removed := 0
			for _, c := range cleaners {
				removed += c.Cleanup()
			}
			if removed > 0 && logger != nil {
				logger.WithField("removed", removed).Debug("Evicted idle rate limit buckets")
			}
			return nil
		},
	}
}
