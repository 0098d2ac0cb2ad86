// Package memory keeps a bounded, expiring history of podcast generations and
// derives preference statistics from it.
package memory

import (
	"container/list"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/podcasts/internal/models"
)

const (
	DefaultMaxEntries = 100
	DefaultTTL        = 24 * time.Hour
)

// Store is an insertion-ordered map of preference entries. Entries older than
// the TTL are purged lazily on every access and the oldest insertion is evicted
// once the size bound is exceeded. Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	order *list.List // of *item, oldest first
	index map[string]*list.Element
}

type item struct {
	key   string
	entry models.PreferenceEntry
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store holding at most maxEntries entries for ttl.
// Non-positive values fall back to the defaults.
func NewStore(maxEntries int, ttl time.Duration, opts ...Option) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		order:      list.New(),
		index:      make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(s)
	}

	log.Info().
		Int("max_entries", maxEntries).
		Dur("ttl", ttl).
		Msg("Preference store initialized")

	return s
}

func entryKey(e models.PreferenceEntry) string {
	return fmt.Sprintf("%s_%s_%s_%d", e.Topic, e.Tone, e.Voice, e.Timestamp.UnixNano())
}

// Record inserts an entry. An entry with the same key replaces the previous
// value in place and keeps its position.
func (s *Store) Record(entry models.PreferenceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()

	key := entryKey(entry)
	if el, ok := s.index[key]; ok {
		el.Value.(*item).entry = entry
		return
	}
	s.index[key] = s.order.PushBack(&item{key: key, entry: entry})

	if s.order.Len() > s.maxEntries {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.index, oldest.Value.(*item).key)
	}
}

// Recent returns up to limit of the most recently inserted entries, most recent last.
func (s *Store) Recent(limit int) []models.PreferenceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()
	if limit <= 0 {
		return nil
	}

	start := s.order.Len() - limit
	out := make([]models.PreferenceEntry, 0, min(limit, s.order.Len()))
	i := 0
	for el := s.order.Front(); el != nil; el = el.Next() {
		if i >= start {
			out = append(out, el.Value.(*item).entry)
		}
		i++
	}
	return out
}

// ByTopic returns entries whose topic contains substr, ignoring case.
func (s *Store) ByTopic(substr string) []models.PreferenceEntry {
	needle := strings.ToLower(substr)
	return s.filter(func(e models.PreferenceEntry) bool {
		return strings.Contains(strings.ToLower(e.Topic), needle)
	})
}

// ByVoice returns entries generated with voice.
func (s *Store) ByVoice(voice models.Voice) []models.PreferenceEntry {
	return s.filter(func(e models.PreferenceEntry) bool {
		return e.Voice == voice
	})
}

func (s *Store) filter(match func(models.PreferenceEntry) bool) []models.PreferenceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()
	var out []models.PreferenceEntry
	for el := s.order.Front(); el != nil; el = el.Next() {
		if e := el.Value.(*item).entry; match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Aggregate derives preferences from the live entries. An empty store yields a
// neutral result with no preferred voice or tone and a 0% success rate.
func (s *Store) Aggregate() models.AggregatePreferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()

	agg := models.AggregatePreferences{
		VoiceDistribution: make(map[models.Voice]int),
		ToneDistribution:  make(map[models.Tone]int),
	}
	total := s.order.Len()
	if total == 0 {
		return agg
	}

	// first-seen order breaks ties between equally frequent values
	var voiceOrder []models.Voice
	var toneOrder []models.Tone
	succeeded := 0
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*item).entry
		if _, seen := agg.VoiceDistribution[e.Voice]; !seen {
			voiceOrder = append(voiceOrder, e.Voice)
		}
		if _, seen := agg.ToneDistribution[e.Tone]; !seen {
			toneOrder = append(toneOrder, e.Tone)
		}
		agg.VoiceDistribution[e.Voice]++
		agg.ToneDistribution[e.Tone]++
		if e.Success {
			succeeded++
		}
	}

	for _, v := range voiceOrder {
		if agg.PreferredVoice == "" || agg.VoiceDistribution[v] > agg.VoiceDistribution[agg.PreferredVoice] {
			agg.PreferredVoice = v
		}
	}
	for _, t := range toneOrder {
		if agg.PreferredTone == "" || agg.ToneDistribution[t] > agg.ToneDistribution[agg.PreferredTone] {
			agg.PreferredTone = t
		}
	}

	agg.TotalGenerations = total
	agg.SuccessRate = math.Round(float64(succeeded)/float64(total)*100*100) / 100
	return agg
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Init()
	s.index = make(map[string]*list.Element)
}

// Count returns the number of live entries.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()
	return s.order.Len()
}

// purgeExpired drops entries older than the TTL. Caller holds s.mu.
func (s *Store) purgeExpired() {
	now := s.now()
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		it := el.Value.(*item)
		if now.Sub(it.entry.Timestamp) > s.ttl {
			s.order.Remove(el)
			delete(s.index, it.key)
		}
		el = next
	}
}
