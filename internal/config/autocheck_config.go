package config

import "time"

const (
	// Policy defaults, used when no policy row exists yet
	DefaultScoreThreshold = 0.5
	DefaultActionOnFlag   = "record"

	// Scoring
	ScoringTimeout     = 180 * time.Second
	DefaultScoringRPS  = 5
	ScoringBurst       = 1
	MaxScoringBodySize = 1 << 20

	// Queue
	TriggerQueueKey          = "queue:abuse_check"
	DefaultWorkerConcurrency = 4
	DequeueTimeout           = 5 * time.Second

	// Cache
	AutoIgnoreSetKey    = "abuse_report:auto_handled"
	RefreshChannel      = "abuse_report:refresh"
	CacheRefreshTimeout = 10 * time.Second
	NotifyTimeout       = 15 * time.Second

	// Ledger listing
	DefaultListLimit = 10
	MaxListLimit     = 100

	// Export
	ExportSheetName      = "Abuse Report"
	ExportFilePrefix     = "abuse-report-processed-"
	ExportTimeLayout     = "2006-01-02-15-04-05"
	ModeratorTokenTTL    = 72 * time.Hour
	ModeratorTokenIssuer = "modcheck-service"
)
