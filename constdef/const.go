package constdef

const (
	MinUserLength      = 1
	MaxUserLength      = 100
	MaxMessageIDLength = 128
)

const (
	DefaultChartDays       = 7
	DefaultHistoryPageSize = 10
	MaxHistoryPageSize     = 50
)

const (
	// MaxHashRateTextLength bounds the free text of the mining calculator.
	MaxHashRateTextLength = 64

	// StatsRecordInterval is the number of stats refreshes between two
	// persisted snapshots.
	StatsRecordInterval = 10
)
