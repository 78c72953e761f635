// Package metrics defines the Prometheus collectors of record ingestion and
// file reconstruction.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Keys for flashmap metrics.
const (
	Live      = "live"
	Deleted   = "deleted"
	Discarded = "discarded"
	Root      = "root"

	Parsed       = "parsed"
	Skipped      = "skipped"
	Unrecognized = "unrecognized"
)

// Collectors for record.Log ingestion.
var (
	RecordsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashmap_records_ingested_total",
		Help: "Cumulative number of records ingested into a record log, by kind.",
	}, []string{"kind"})
	DuplicateRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashmap_duplicate_records_total",
		Help: "Cumulative number of records dropped for sharing an inode and version with an earlier record.",
	}, []string{"kind"})
	DumpLinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashmap_dump_lines_total",
		Help: "Cumulative number of dump lines read by the extractor, by outcome.",
	}, []string{"outcome"})
)

// Collectors for fileset reconstruction.
var (
	FilesFinalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashmap_files_finalized_total",
		Help: "Cumulative number of files finalized, by resulting state.",
	}, []string{"state"})
	ReconstructionHolesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flashmap_reconstruction_holes_total",
		Help: "Cumulative number of files whose live content has a byte not covered by any extent.",
	})
	LiveBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flashmap_live_bytes_total",
		Help: "Cumulative number of live file bytes reconstructed.",
	})
)
