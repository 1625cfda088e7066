package botjson

const (
	// StatsChangedNtfnMethod is the method of the notification pushed to
	// websocket clients whenever the DAA score advances.
	StatsChangedNtfnMethod = "stats.changed"
)

// StatsChangedNtfn defines the stats.changed JSON-RPC notification.
type StatsChangedNtfn struct {
	DAAScore    uint64  `json:"daa_score"`
	BlockCount  uint64  `json:"block_count"`
	HashRate    float64 `json:"hash_rate"`
	Difficulty  float64 `json:"difficulty"`
	FetchedAtMs int64   `json:"fetched_at_ms"`
}

func NewStatsChangedNtfn(daaScore uint64, blockCount uint64, hashRate float64, difficulty float64,
	fetchedAtMs int64) *StatsChangedNtfn {

	return &StatsChangedNtfn{
		DAAScore:    daaScore,
		BlockCount:  blockCount,
		HashRate:    hashRate,
		Difficulty:  difficulty,
		FetchedAtMs: fetchedAtMs,
	}
}

func init() {
	// The commands in this file are only usable by websockets and are
	// notifications.
	flags := UFWebsocketOnly | UFNotification

	MustRegisterCmd(StatsChangedNtfnMethod, (*StatsChangedNtfn)(nil), flags)
}
