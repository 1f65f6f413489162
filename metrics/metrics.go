package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var namespace = "alpaca"
var subsystem = "recordstore"

var (
	// StartupTime stores how long the startup took (in seconds)
	StartupTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "startup_seconds",
			Help:      "Seconds taken by the startup",
		},
	)

	// StoredRecords is the number of records held, partitioned by role
	StoredRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "stored_records",
		Help:      "Number of records currently held in memory",
	}, []string{"role"})

	// SnapshotSizeBytes is the on-disk size of the persisted snapshot
	SnapshotSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "snapshot_size_bytes",
		Help:      "Disk usage of the persisted snapshot file",
	})

	// ReplicationLinksActive is the number of slaves in the broadcast set
	ReplicationLinksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "replication_links_active",
		Help:      "Number of replication links currently receiving broadcasts",
	})

	// ReplicationConnectsTotal counts successful connector dials per slave
	ReplicationConnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "replication_connects_total",
		Help:      "Number of successful connections to a slave, partitioned by slave address",
	}, []string{"slave"})

	// ReplicationFramesSentTotal counts frames written to links, partitioned by action
	ReplicationFramesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "replication_frames_sent_total",
		Help:      "Number of mutation frames written to replication links, partitioned by action",
	}, []string{"action"})

	// ReplicationWriteErrorsTotal counts failed frame writes
	ReplicationWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "replication_write_errors_total",
		Help:      "Number of frame writes that failed on a replication link",
	})

	// ReplicationFramesAppliedTotal counts frames applied on a replica, partitioned by action
	ReplicationFramesAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "replication_frames_applied_total",
		Help:      "Number of mutation frames applied by the replica, partitioned by action",
	}, []string{"action"})

	// ReplicaReinitsTotal counts receiver teardowns forced by the connection monitor
	ReplicaReinitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "replica_reinits_total",
		Help:      "Number of times the replica dropped its master connection and listened again",
	})
)
