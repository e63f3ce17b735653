package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/lyrics/highlight"
	"lyrics-sync-go/lyrics/merge"
	"lyrics-sync-go/middleware"
	"lyrics-sync-go/services/notifier"
	"lyrics-sync-go/services/providers"
	_ "lyrics-sync-go/services/providers/github"
	_ "lyrics-sync-go/services/providers/kugou"
	"lyrics-sync-go/services/providers/lrchub"
	_ "lyrics-sync-go/services/providers/lrclib"
	"lyrics-sync-go/services/translate"
	"lyrics-sync-go/session"
	"lyrics-sync-go/stats"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"
)

var conf = config.Get()

var (
	manager          *session.Manager
	lyricsStore      cache.Store
	providerChain    *providers.Chain
	recorder         = notifier.NewRecorder(conf.Notifications.RecentEvents)
	translateBreaker *circuitbreaker.CircuitBreaker
	notifiers        []notifier.Notifier
)

// publicPaths never need an API key; everything that changes state does.
var publicPaths = []string{"/", "/health", "/lyrics", "/highlight", "/candidates", "/notifications"}

func main() {
	setupLogging(conf)

	statsStore, err := stats.NewStore(conf.Cache.StatsPath)
	if err != nil {
		log.Warnf("%s Stats will not persist: %v", logcolors.LogStats, err)
	} else {
		if err := statsStore.Load(); err != nil {
			log.Warnf("%s Failed to load stats: %v", logcolors.LogStats, err)
		}
		statsStore.StartAutoSave(5 * time.Minute)
	}

	bus := notifier.GetEventBus()
	recorder.Attach(bus)
	notifiers = setupNotifiers(conf)
	if len(notifiers) > 0 {
		notifier.NewAlertHandler(notifier.AlertConfig{
			Notifiers:        notifiers,
			CooldownDuration: conf.AlertCooldown(),
			MinSeverity:      notifier.Severity(conf.Notifications.MinSeverity),
		}).Start(bus)
	} else {
		log.Infof("%s No notifiers configured, alerts are only recorded", logcolors.LogNotifier)
	}

	lyricsStore, err = cache.Open(conf)
	if err != nil {
		notifier.PublishServerStartupFailed("cache", err)
		log.Fatalf("%s Failed to open cache: %v", logcolors.LogCacheInit, err)
	}

	providerChain = providers.ChainFromRegistry(providers.GetRegistry(), conf.ProviderOrder(), conf.ProviderTimeout())
	if len(providerChain.Names()) == 0 {
		err := errors.New("no lyrics providers configured")
		notifier.PublishServerStartupFailed("providers", err)
		log.Fatalf("%s %v (PROVIDER_ORDER=%q)", logcolors.LogConfig, err, conf.Providers.Order)
	}

	var translator translate.Translator
	translator, translateBreaker = setupTranslator(conf)

	manager = session.NewManager(sessionOptions(conf, translator))

	limiter := middleware.NewIPRateLimiter(
		rate.Limit(conf.Configuration.RateLimitPerSecond), conf.Configuration.RateLimitBurstLimit,
		rate.Limit(conf.Configuration.ReadRateLimitPerSecond), conf.Configuration.ReadRateLimitBurst,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go pruneLimiters(ctx, limiter)

	router := mux.NewRouter()
	setupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + conf.Configuration.Port,
		Handler:           buildHandler(router, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			notifier.PublishServerStartupFailed("http", err)
			log.Fatalf("%s Server failed: %v", logcolors.LogServer, err)
		}
	}()

	log.Infof("%s Listening on port %s (providers: %s)", logcolors.LogServer, conf.Configuration.Port, strings.Join(providerChain.Names(), " → "))
	notifier.PublishServerStarted(conf.Configuration.Port, providerChain.Names())

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("%s Shutdown: %v", logcolors.LogServer, err)
	}
	manager.Close()
	if statsStore != nil {
		statsStore.Close()
	}
	if err := lyricsStore.Close(); err != nil {
		log.Warnf("%s Failed to close cache: %v", logcolors.LogCache, err)
	}
}

// setupLogging applies the logging config. With LOG_FILE set, logs go to
// stdout and to a rotated file.
func setupLogging(c config.Config) {
	if strings.EqualFold(c.Logging.Format, "text") {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		log.Warnf("%s Unknown LOG_LEVEL %q, using info", logcolors.LogConfig, c.Logging.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	var out io.Writer = os.Stdout
	if c.Logging.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   c.Logging.File,
			MaxSize:    c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
			MaxAge:     c.Logging.MaxAgeDays,
			Compress:   true,
		})
	}
	log.SetOutput(out)
}

func setupNotifiers(c config.Config) []notifier.Notifier {
	var out []notifier.Notifier
	n := c.Notifications

	if n.SMTPHost != "" {
		out = append(out, &notifier.EmailNotifier{
			SMTPHost:     n.SMTPHost,
			SMTPPort:     n.SMTPPort,
			SMTPUsername: n.SMTPUsername,
			SMTPPassword: n.SMTPPassword,
			FromEmail:    n.EmailFrom,
			ToEmail:      n.EmailTo,
		})
	}
	if n.TelegramBotToken != "" {
		out = append(out, &notifier.TelegramNotifier{BotToken: n.TelegramBotToken, ChatID: n.TelegramChatID})
	}
	if n.NtfyTopic != "" {
		out = append(out, &notifier.NtfyNotifier{Topic: n.NtfyTopic, Server: n.NtfyServer})
	}

	for _, nt := range out {
		log.Infof("%s %s notifier enabled", logcolors.LogNotifier, notifier.TypeName(nt))
	}
	return out
}

// setupTranslator returns nil when translation is off or no key is set.
func setupTranslator(c config.Config) (translate.Translator, *circuitbreaker.CircuitBreaker) {
	t := c.Translation
	if !t.Enabled || t.DeepLAPIKey == "" {
		log.Infof("%s Machine translation disabled", logcolors.LogTranslate)
		return nil, nil
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:      "DeepL",
		Threshold: c.CircuitBreaker.Threshold,
		Cooldown:  time.Duration(c.CircuitBreaker.CooldownSecs) * time.Second,
	})
	client := &providers.Client{
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		UserAgent: c.Providers.UserAgent,
	}
	deepl := translate.NewDeepL(t.DeepLAPIKey, t.DeepLBaseURL, client)
	limiter := rate.NewLimiter(rate.Limit(t.RatePerSecond), t.RateBurst)

	log.Infof("%s DeepL enabled (%.1f req/s)", logcolors.LogTranslate, t.RatePerSecond)
	return translate.NewGuarded(deepl, limiter, breaker), breaker
}

func sessionOptions(c config.Config, translator translate.Translator) session.Options {
	opts := session.Options{
		Source:     providerChain,
		Cache:      cache.NewLyricsCache(lyricsStore, c.NegativeCacheTTL()),
		Translator: translator,
		Languages:  merge.Options{Main: c.Translation.MainLang, Sub: c.Translation.SubLang},
		Highlight: highlight.Options{
			InterludeGap:     c.Sync.InterludeGapSecs,
			InterludeElapsed: c.Sync.InterludeElapsedSecs,
		},
		AlignTolerance:  c.Sync.AlignToleranceSecs,
		SettleDelay:     c.CandidateSettleDelay(),
		ReloadTimeout:   c.ProviderTimeout(),
		RegisterMachine: c.Translation.RegisterMachined,
		CacheOnly:       c.FeatureFlags.CacheOnlyMode,
	}

	// The registry and the selection endpoint live on the lrchub service.
	if p, err := providers.Get(lrchub.ProviderName); err == nil {
		if hub, ok := p.(*lrchub.Provider); ok {
			opts.Registry = hub
			opts.Selector = hub
		}
	}
	if opts.Selector == nil {
		log.Warnf("%s lrchub is not registered, candidate selection and locks are unavailable", logcolors.LogCandidates)
	}
	return opts
}

func buildHandler(router http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   splitList(conf.Configuration.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key"},
		AllowCredentials: true,
	})

	authed := middleware.APIKeyMiddleware(conf.Configuration.APIKey, conf.Configuration.APIKeyRequired, publicPaths)(router)
	logged := middleware.LoggingMiddleware(authed)
	return middleware.RateLimitMiddleware(limiter, conf.Configuration.APIKey)(c.Handler(logged))
}

// pruneLimiters drops per-IP limiters that have been idle for a while.
func pruneLimiters(ctx context.Context, limiter *middleware.IPRateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(30 * time.Minute); n > 0 {
				log.Debugf("%s Pruned %d idle limiters", logcolors.LogRateLimit, n)
			}
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
