package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"lyrics-sync-go/cache"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/lyrics/align"
	"lyrics-sync-go/lyrics/candidates"
	"lyrics-sync-go/lyrics/highlight"
	"lyrics-sync-go/lyrics/lrc"
	"lyrics-sync-go/lyrics/merge"
	"lyrics-sync-go/lyrics/script"
	"lyrics-sync-go/metrics"
	"lyrics-sync-go/services/notifier"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/services/providers/lrchub"
	"lyrics-sync-go/services/translate"
	"lyrics-sync-go/stats"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStale is returned when a result was dropped because another song was
	// opened while it was computed. Callers treat it as a no-op.
	ErrStale = errors.New("session changed before the result was committed")
	// ErrNoSession is returned before the first Open.
	ErrNoSession = errors.New("no song is open")
	// ErrNotLoaded is returned when an operation needs lyrics that are not there.
	ErrNotLoaded = errors.New("lyrics are not loaded")
	// ErrNoSelector is returned when no selection endpoint is configured.
	ErrNoSelector = errors.New("selection endpoint not configured")
	// ErrAlreadyLocked is returned when a lock request was already confirmed.
	ErrAlreadyLocked = errors.New("request is already locked")
)

// LyricsSource resolves lyrics for a song. *providers.Chain implements it.
type LyricsSource interface {
	Fetch(ctx context.Context, req providers.Request) (*providers.Result, []providers.Attempt, error)
}

// TranslationRegistry stores translations shared between listeners.
// *lrchub.Provider implements it.
type TranslationRegistry interface {
	FetchTranslations(ctx context.Context, req providers.Request, langs []string) (map[string]string, []string, error)
	RegisterTranslation(ctx context.Context, req providers.Request, lang, lyrics string) error
}

// Selector reports candidate picks and lock requests. *lrchub.Provider
// implements it.
type Selector interface {
	Select(ctx context.Context, s lrchub.Selection) error
}

// Options wires a Manager. Only Source is required.
type Options struct {
	Source     LyricsSource
	Cache      *cache.LyricsCache
	Registry   TranslationRegistry
	Translator translate.Translator
	Selector   Selector

	Languages      merge.Options
	AlignTolerance float64
	Highlight      highlight.Options
	// Listener receives highlight transitions. Nil logs them at debug level.
	Listener highlight.Listener

	// SettleDelay is the wait between a confirmed selection and the reload
	// of the canonical lyrics.
	SettleDelay time.Duration
	// ReloadTimeout bounds the background reload after a selection.
	ReloadTimeout time.Duration
	// RegisterMachine stores machine translations of timed lyrics in the registry.
	RegisterMachine bool
	// CacheOnly answers from the cache and never calls providers.
	CacheOnly bool
}

type state struct {
	id      Identity
	runID   string
	gen     uint64
	result  Result
	machine *candidates.Machine
	hl      *highlight.Highlighter
	settle  *time.Timer
}

// ticket is what a pipeline captures when it starts.
type ticket struct {
	gen   uint64
	id    Identity
	runID string
}

// Manager is the single owner of session state. Open replaces the whole
// state at once; pipelines started for an earlier song commit nothing.
type Manager struct {
	opts  Options
	mu    sync.RWMutex
	gen   uint64
	cur   *state
	loads singleflight.Group
}

// NewManager fills zero options with their defaults.
func NewManager(opts Options) *Manager {
	if opts.AlignTolerance <= 0 {
		opts.AlignTolerance = align.DefaultTolerance
	}
	if opts.Highlight == (highlight.Options{}) {
		opts.Highlight = highlight.DefaultOptions()
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 10 * time.Second
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = 2 * time.Minute
	}
	return &Manager{opts: opts}
}

// Open makes id the current song and returns its generation. Everything known
// about the previous song is discarded.
func (m *Manager) Open(id Identity) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cur != nil && m.cur.settle != nil {
		m.cur.settle.Stop()
	}
	m.gen++
	m.cur = &state{
		id:      id,
		runID:   uuid.NewString(),
		gen:     m.gen,
		result:  Result{Kind: Unloaded},
		machine: candidates.New(nil, nil, candidates.Config{}),
	}

	log.WithField("run", m.cur.runID).Infof("%s Opened %q", logcolors.LogSession, id.Key())
	return m.gen
}

// Close stops pending background work.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil && m.cur.settle != nil {
		m.cur.settle.Stop()
	}
}

func (m *Manager) ticket() (ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return ticket{}, ErrNoSession
	}
	return ticket{gen: m.cur.gen, id: m.cur.id, runID: m.cur.runID}, nil
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur != nil && m.cur.gen == gen
}

// commit runs fn against the state if t still names the current song.
func (m *Manager) commit(t ticket, pipeline string, fn func(s *state)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil || m.cur.gen != t.gen {
		metrics.RecordStale(pipeline)
		stats.Get().RecordStale()
		log.WithField("run", t.runID).Debugf("%s Dropping %s result for %q", logcolors.LogStale, pipeline, t.id.Key())
		return ErrStale
	}
	fn(m.cur)
	return nil
}

// loaded is lyrics on their way into the state.
type loaded struct {
	text        string
	dynamic     []lrc.DynamicLine
	provider    string
	backup      bool
	cached      bool
	candidateID string
}

// Load resolves lyrics for the current song: cache, then providers, then
// translations. Concurrent calls for the same song share one run. Provider
// failures end in a NotFound result, not an error.
func (m *Manager) Load(ctx context.Context) (Result, error) {
	t, err := m.ticket()
	if err != nil {
		return Result{}, err
	}

	v, err, shared := m.loads.Do(strconv.FormatUint(t.gen, 10), func() (interface{}, error) {
		return m.load(ctx, t, false)
	})
	if shared {
		log.WithField("run", t.runID).Debugf("%s Joined in-flight load of %q", logcolors.LogSession, t.id.Key())
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (m *Manager) load(ctx context.Context, t ticket, skipCache bool) (Result, error) {
	key := t.id.Key()
	logger := log.WithField("run", t.runID)

	var lyr loaded
	if m.opts.Cache != nil && !skipCache {
		entry, status := m.opts.Cache.Lookup(ctx, key)
		switch status {
		case cache.Hit:
			stats.Get().RecordCacheHit()
			lyr = loaded{
				text:        entry.Lyrics,
				dynamic:     entry.Dynamic,
				provider:    entry.Provider,
				backup:      entry.Backup,
				cached:      true,
				candidateID: entry.CandidateID,
			}
		case cache.NoLyrics:
			stats.Get().RecordNegativeCacheHit()
			logger.Infof("%s %q is known to have no lyrics", logcolors.LogCacheNegative, key)
			return m.commitNotFound(t)
		default:
			stats.Get().RecordCacheMiss()
		}
	}

	var fetched *providers.Result
	if lyr.text == "" {
		if m.opts.CacheOnly {
			return m.commitNotFound(t)
		}

		res, attempts, err := m.opts.Source.Fetch(ctx, t.id.Request())
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			logger.Warnf("%s No lyrics for %q: %v", logcolors.LogSession, key, err)
			notifier.PublishAllProvidersFailed(key, len(attempts))
			if m.opts.Cache != nil {
				m.opts.Cache.PutNoLyrics(ctx, key)
			}
			return m.commitNotFound(t)
		}

		fetched = res
		lyr = loaded{text: res.LyricsText, dynamic: res.Dynamic, provider: res.Provider, backup: res.Backup}
		if res.Backup {
			notifier.PublishBackupLyricsServed(key, res.Provider)
		}
		if m.opts.Cache != nil {
			m.opts.Cache.Put(ctx, key, cache.Entry{
				Lyrics:   res.LyricsText,
				Dynamic:  res.Dynamic,
				Provider: res.Provider,
				Backup:   res.Backup,
			})
		}
	}

	machine := candidates.New(nil, nil, candidates.Config{})
	if fetched != nil {
		machine = candidates.New(fetched.Candidates, fetched.Requests, fetched.Config)
	}
	if lyr.candidateID != "" {
		if _, err := machine.Select(lyr.candidateID); err != nil {
			machine.MatchLoaded(lyr.text)
		}
	} else {
		machine.MatchLoaded(lyr.text)
	}

	result, base := m.compose(lyr)
	err := m.commit(t, "load", func(s *state) {
		s.result = result
		s.machine = machine
		s.hl = highlight.New(base.Lines, result.Dynamic, m.opts.Highlight, m.listener(t))
	})
	if err != nil {
		return Result{}, err
	}
	stats.Get().RecordLoad(true, lyr.backup)
	logger.Infof("%s Loaded %d lines for %q from %s", logcolors.LogSession, len(base.Lines), key, lyr.provider)

	return m.translateAndCommit(ctx, t, base, result)
}

func (m *Manager) commitNotFound(t ticket) (Result, error) {
	r := Result{Kind: NotFound}
	err := m.commit(t, "load", func(s *state) {
		s.result = r
		s.hl = nil
		s.machine = candidates.New(nil, nil, candidates.Config{})
	})
	if err != nil {
		return Result{}, err
	}
	stats.Get().RecordLoad(false, false)
	return r, nil
}

// compose parses lyrics into an untranslated result.
func (m *Manager) compose(lyr loaded) (Result, lrc.Lyrics) {
	base := lrc.Parse(lyr.text)

	dynamic := lyr.dynamic
	if len(dynamic) != len(base.Lines) {
		dynamic = nil
	}

	lang := script.DetectLanguage(lrc.Texts(base.Lines))
	return Result{
		Kind:     Found,
		Lines:    merge.Merge(base.Lines, nil, merge.Options{}),
		Dynamic:  dynamic,
		Timed:    base.Timed,
		Language: lang,
		RTL:      script.IsRTL(lang),
		Provider: lyr.provider,
		Backup:   lyr.backup,
		Cached:   lyr.cached,
	}, base
}

func (m *Manager) translateAndCommit(ctx context.Context, t ticket, base lrc.Lyrics, result Result) (Result, error) {
	langs := merge.Languages(m.opts.Languages)
	if len(langs) == 0 || len(base.Lines) == 0 {
		return result, nil
	}

	aligned, sources := m.translations(ctx, t, base, langs)
	result.Lines = merge.Merge(base.Lines, aligned, m.opts.Languages)
	result.Translations = sources

	if err := m.commit(t, "translation", func(s *state) { s.result = result }); err != nil {
		return Result{}, err
	}
	return result, nil
}

// translations gathers every language: the registry first, then machine
// translation of whatever the registry lacks, one goroutine per language.
func (m *Manager) translations(ctx context.Context, t ticket, base lrc.Lyrics, langs []string) (map[string][]align.Entry, map[string]string) {
	req := t.id.Request()
	logger := log.WithField("run", t.runID)

	aligned := make(map[string][]align.Entry, len(langs))
	sources := make(map[string]string, len(langs))

	if m.opts.Registry != nil {
		found, _, err := m.opts.Registry.FetchTranslations(ctx, req, langs)
		if err != nil {
			logger.Warnf("%s Lookup failed: %v", logcolors.LogRegistry, err)
		}
		for _, lang := range langs {
			text, ok := found[lang]
			if !ok {
				continue
			}
			aligned[lang] = align.Align(base.Lines, lrc.Parse(text).Lines, m.opts.AlignTolerance)
			sources[lang] = "registry"
			metrics.RecordTranslationSource("registry")
			logger.Debugf("%s %s aligned %.0f%%", logcolors.LogAlign, lang, align.Coverage(aligned[lang])*100)
		}
	}

	var missing []string
	for _, lang := range langs {
		if _, ok := sources[lang]; !ok {
			missing = append(missing, lang)
		}
	}
	if len(missing) == 0 {
		return aligned, sources
	}

	if m.opts.Translator == nil {
		for _, lang := range missing {
			sources[lang] = "none"
			metrics.RecordTranslationSource("none")
		}
		return aligned, sources
	}

	texts := lrc.Texts(base.Lines)
	var mu sync.Mutex
	var g errgroup.Group
	for _, lang := range missing {
		lang := lang
		g.Go(func() error {
			entries, err := m.machineTranslate(ctx, t, req, base, texts, lang)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warnf("%s %s translation failed: %v", logcolors.LogTranslate, lang, err)
				notifier.PublishTranslationFailed(t.id.Key(), lang, err)
				sources[lang] = "none"
				metrics.RecordTranslationSource("none")
				return nil
			}
			aligned[lang] = entries
			sources[lang] = "machine"
			metrics.RecordTranslationSource("machine")
			return nil
		})
	}
	g.Wait()

	return aligned, sources
}

func (m *Manager) machineTranslate(ctx context.Context, t ticket, req providers.Request, base lrc.Lyrics, texts []string, lang string) ([]align.Entry, error) {
	out, err := translate.Lines(ctx, m.opts.Translator, texts, lang)
	if err != nil {
		return nil, err
	}
	translated := lrc.WithTexts(base.Lines, out)

	if m.opts.Registry != nil && m.opts.RegisterMachine && base.Timed && m.isCurrent(t.gen) {
		if err := m.opts.Registry.RegisterTranslation(ctx, req, lang, lrc.Format(translated)); err != nil {
			log.WithField("run", t.runID).Warnf("%s Could not register %s: %v", logcolors.LogRegistry, lang, err)
		}
	}

	return align.Align(base.Lines, translated, m.opts.AlignTolerance), nil
}

// SelectCandidate applies candidate id locally, reports it to the service
// and reloads the canonical lyrics after the settle delay if the song is
// still current. A failed report keeps the local choice and the reload, and
// is returned as an error.
func (m *Manager) SelectCandidate(ctx context.Context, id string) error {
	t, err := m.ticket()
	if err != nil {
		return err
	}

	var cand candidates.Candidate
	var selErr error
	var provider string
	err = m.commit(t, "select", func(s *state) {
		cand, selErr = s.machine.Select(id)
		provider = s.result.Provider
	})
	if err != nil {
		return err
	}
	if selErr != nil {
		return selErr
	}

	key := t.id.Key()
	if m.opts.Cache != nil {
		m.opts.Cache.Put(ctx, key, cache.Entry{Lyrics: cand.Lyrics, CandidateID: id, Provider: provider})
	}

	result, base := m.compose(loaded{text: cand.Lyrics, provider: provider, candidateID: id})
	err = m.commit(t, "select", func(s *state) {
		s.result = result
		s.hl = highlight.New(base.Lines, nil, m.opts.Highlight, m.listener(t))
	})
	if err != nil {
		return err
	}
	log.WithField("run", t.runID).Infof("%s Applied candidate %s for %q", logcolors.LogCandidates, id, key)

	if _, err := m.translateAndCommit(ctx, t, base, result); err != nil {
		return err
	}

	m.scheduleReload(t)
	if m.opts.Selector == nil {
		return nil
	}

	remoteID := cand.ID
	if remoteID == "" {
		remoteID = id
	}
	err = m.opts.Selector.Select(ctx, lrchub.Selection{SourceURL: t.id.URL, SourceID: t.id.VideoID, CandidateID: remoteID})
	if err != nil {
		metrics.RecordAction("select", "failed")
		notifier.PublishSelectionFailed(key, remoteID, err)
		return fmt.Errorf("selection not recorded: %w", err)
	}

	metrics.RecordAction("select", "ok")
	notifier.PublishCandidateSelected(key, remoteID)
	return nil
}

func (m *Manager) scheduleReload(t ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil || m.cur.gen != t.gen {
		return
	}
	if m.cur.settle != nil {
		m.cur.settle.Stop()
	}
	m.cur.settle = time.AfterFunc(m.opts.SettleDelay, func() { m.settleReload(t) })
}

// settleReload refetches the song after a selection, bypassing the cache.
func (m *Manager) settleReload(t ticket) {
	if !m.isCurrent(t.gen) {
		metrics.RecordStale("reload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.ReloadTimeout)
	defer cancel()

	if m.opts.Cache != nil {
		m.opts.Cache.Forget(ctx, t.id.Key())
	}
	_, err, _ := m.loads.Do(strconv.FormatUint(t.gen, 10), func() (interface{}, error) {
		return m.load(ctx, t, true)
	})
	if err != nil && !errors.Is(err, ErrStale) {
		log.WithField("run", t.runID).Warnf("%s Reload after selection failed: %v", logcolors.LogCandidates, err)
	}
}

// Lock asks the service to finalize request requestID. On success the
// request is marked locked locally without asking the service again; the
// local state stays ahead of the service until the next full reload.
func (m *Manager) Lock(ctx context.Context, requestID string) error {
	t, err := m.ticket()
	if err != nil {
		return err
	}

	var req candidates.Request
	var ok bool
	m.mu.RLock()
	if m.cur != nil && m.cur.gen == t.gen {
		req, ok = m.cur.machine.ResolveRequest(requestID)
	}
	m.mu.RUnlock()
	if !ok {
		return candidates.ErrUnknownRequest
	}
	if req.Locked {
		return ErrAlreadyLocked
	}
	if m.opts.Selector == nil {
		return ErrNoSelector
	}

	key := t.id.Key()
	err = m.opts.Selector.Select(ctx, lrchub.Selection{SourceURL: t.id.URL, SourceID: t.id.VideoID, Request: req.Key(), Lock: true})
	if err != nil {
		metrics.RecordAction("lock", "failed")
		notifier.PublishLockFailed(key, req.Key(), err)
		return fmt.Errorf("lock not recorded: %w", err)
	}

	var markErr error
	err = m.commit(t, "lock", func(s *state) {
		req, markErr = s.machine.MarkLocked(requestID)
	})
	if err != nil {
		return err
	}
	if markErr != nil {
		return markErr
	}

	metrics.RecordAction("lock", "ok")
	notifier.PublishLyricsLocked(key, req.Key(), string(req.Target))
	log.WithField("run", t.runID).Infof("%s %s locked for %q", logcolors.LogLock, req.Key(), key)
	return nil
}

// Highlight samples the committed lyrics at playback time t in seconds.
func (m *Manager) Highlight(t float64) (highlight.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return highlight.State{}, ErrNoSession
	}
	if m.cur.hl == nil {
		return highlight.State{}, ErrNotLoaded
	}
	st, _ := m.cur.hl.Update(t)
	return st, nil
}

// Snapshot is a copy of the current session for display.
type Snapshot struct {
	Identity    Identity                  `json:"identity"`
	RunID       string                    `json:"runId"`
	Generation  uint64                    `json:"generation"`
	Result      Result                    `json:"result"`
	Candidates  candidates.CandidateState `json:"candidates"`
	Locks       candidates.LockState      `json:"locks"`
	Config      candidates.Config         `json:"config"`
	Affordances candidates.Affordances    `json:"affordances"`
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return Snapshot{}, ErrNoSession
	}
	s := m.cur
	return Snapshot{
		Identity:    s.id,
		RunID:       s.runID,
		Generation:  s.gen,
		Result:      s.result,
		Candidates:  s.machine.CandidateState(),
		Locks:       s.machine.LockState(),
		Config:      s.machine.Config(),
		Affordances: s.machine.Affordances(),
	}, nil
}

type logListener struct {
	key   string
	runID string
}

func (l logListener) Activated(index int) {
	log.WithField("run", l.runID).Debugf("%s %q line %d active", logcolors.LogHighlight, l.key, index)
}

func (l logListener) Deactivated(index int) {
	log.WithField("run", l.runID).Debugf("%s %q line %d done", logcolors.LogHighlight, l.key, index)
}

func (m *Manager) listener(t ticket) highlight.Listener {
	if m.opts.Listener != nil {
		return m.opts.Listener
	}
	return logListener{key: t.id.Key(), runID: t.runID}
}
