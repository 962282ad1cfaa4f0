package soep

// Config holds the cleaning settings, passed explicitly with NewCodec, NewRuleCleaner or CleanAll.
type Config struct {
	// SentinelMin and SentinelMax delimit the band of numeric codes that represent missing, not applicable
	// or refused answers.
	SentinelMin int64
	SentinelMax int64

	// DefaultPrefixTokens is the number of leading tokens removed from labels like "[3] Upper secondary"
	// when a negative count is passed to ToStringCategorical.
	DefaultPrefixTokens int

	// NarrowFloats allows float columns to be stored as float32 when all values round-trip and none is missing.
	NarrowFloats bool

	// CleanConcurrency bounds the number of tables cleaned in parallel by CleanAll.
	CleanConcurrency int
}

// DefaultConfig returns the default settings: sentinels -8..-1, one prefix token, float narrowing on and
// 4 parallel cleaners.
func DefaultConfig() Config {
	return Config{
		SentinelMin:         -8,
		SentinelMax:         -1,
		DefaultPrefixTokens: 1,
		NarrowFloats:        true,
		CleanConcurrency:    4,
	}
}
