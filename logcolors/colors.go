package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Yellow = "\033[33m"

	// Bright variants for more color variety
	BrightGreen   = "\033[92m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"

	Red       = "\033[31m"
	BrightRed = "\033[91m"
)

// Cache-related log prefixes
const (
	LogCacheInit     = Blue + "[Cache:Init]" + Reset
	LogCache         = Blue + "[Cache]" + Reset
	LogCacheRedis    = Blue + "[Cache:Redis]" + Reset
	LogCacheLyrics   = Green + "[Cache:Lyrics]" + Reset
	LogCacheNegative = Cyan + "[Cache:Negative]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// providerColors rotate so each provider keeps a stable color
var providerColors = []string{
	Green, Blue, Purple, Cyan, Red,
	BrightGreen, BrightBlue, BrightMagenta, BrightCyan, BrightRed,
}

// Provider returns a colored [Provider:name] prefix.
// Same provider name always gets the same color
func Provider(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	color := providerColors[hash%len(providerColors)]
	return color + "[Provider:" + name + "]" + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
)

// Notification log prefixes
const (
	LogNotifier = Cyan + "[Notifier]" + Reset
)

// Pipeline log prefixes
const (
	LogRequest    = Purple + "[Request]" + Reset
	LogSearch     = Blue + "[Search]" + Reset
	LogHTTP       = Cyan + "[HTTP]" + Reset
	LogBestMatch  = Green + "[Best Match]" + Reset
	LogFallback   = Cyan + "[Fallback]" + Reset
	LogSession    = Green + "[Session]" + Reset
	LogStale      = Cyan + "[Stale]" + Reset
	LogTranslate  = BrightBlue + "[Translate]" + Reset
	LogMixedLang  = BrightCyan + "[Translate:Mixed]" + Reset
	LogRegistry   = Blue + "[Translate:Registry]" + Reset
	LogAlign      = Cyan + "[Align]" + Reset
	LogCandidates = BrightMagenta + "[Candidates]" + Reset
	LogLock       = Purple + "[Lock]" + Reset
	LogHighlight  = Green + "[Highlight]" + Reset
	LogWarning    = Red + "[Warning]" + Reset
)
