// Package board contains the business logic layer: the item ledger and the
// announcement slot, both operating on the single authoritative in-memory
// dataset.
//
// THE SINGLE-WRITER DISCIPLINE:
// There is exactly one *model.Dataset in the process, owned by the Board and
// never handed out raw. One mutex guards every operation — reads included —
// for its full duration, covering both the in-memory mutation and the
// synchronous snapshot write. That serialization is what makes each request
// atomic with respect to every other request and to the midnight reset.
//
// DURABILITY CONTRACT:
// Every mutation persists the whole dataset before returning. If the save
// fails, the in-memory change is rolled back and the caller gets a storage
// error, so memory never silently diverges from disk beyond the single
// failed call.
//
// DAY BOUNDARY:
// Every operation begins with ensureDay: if the dataset's stored day key no
// longer matches today's, the item list is replaced with an empty one, the
// new key adopted, and the announcement carried over untouched (it is not
// day-scoped). EnsureDay is also invoked on a timer from the server so the
// reset happens even with zero traffic.
package board

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/xfsay/xmg-hall/internal/apperror"
	"github.com/xfsay/xmg-hall/internal/daycycle"
	"github.com/xfsay/xmg-hall/internal/model"
)

// Validation constants. Referenced in error messages, so changing one here
// keeps the user-facing text honest.
const (
	MaxPriceLength        = 30
	MaxCodeLength         = 200
	MaxAnnouncementLength = 500
)

// Snapshotter is the persistence dependency the board needs — implemented by
// store.Store in production and by in-memory fakes in tests.
//
// Declaring the interface here (at the consumer) rather than in the store
// package is the idiomatic direction for Go interfaces: the board states
// what it needs, any store that satisfies it plugs in.
type Snapshotter interface {
	Load(now time.Time) (*model.Dataset, error)
	Save(ds *model.Dataset) error
}

// Stats is the public counters snapshot served by GET /api/stats.
type Stats struct {
	ItemCount         int
	SecondsToMidnight int
	ServerTime        int64 // milliseconds since epoch
	DayKey            string
}

// Board owns the dataset and exposes every ledger and announcement
// operation. All methods are safe for concurrent use.
type Board struct {
	mu     sync.Mutex
	data   *model.Dataset
	snap   Snapshotter
	logger *slog.Logger
	now    func() time.Time // overridable in tests to simulate day rollover
}

// New loads the persisted dataset (self-healing, see the store package) and
// returns a Board ready to serve. Loading runs ensureDay once so a process
// restarted after midnight starts with a clean day.
func New(snap Snapshotter, logger *slog.Logger) (*Board, error) {
	b := &Board{
		snap:   snap,
		logger: logger,
		now:    time.Now,
	}

	ds, err := snap.Load(b.now())
	if err != nil {
		return nil, fmt.Errorf("board: loading dataset: %w", err)
	}
	b.data = ds

	if err := b.EnsureDay(); err != nil {
		return nil, fmt.Errorf("board: initial day check: %w", err)
	}

	return b, nil
}

// EnsureDay rolls the dataset over to today if it is stale. Safe to call at
// any time from any goroutine; the midnight timer calls it so the reset
// happens even with no incoming traffic, and double-firing is harmless
// because a matching key is a no-op.
func (b *Board) EnsureDay() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensureDayLocked(b.now())
}

// ensureDayLocked is the reset-if-stale step that precedes every operation.
// Caller must hold b.mu.
func (b *Board) ensureDayLocked(now time.Time) error {
	key := daycycle.Key(now)
	if b.data.DayKey == key {
		return nil
	}

	// New day: drop all items, keep the announcement. Roll back on a failed
	// save — a reset that didn't reach disk didn't happen.
	prev := b.data
	b.data = &model.Dataset{
		DayKey:       key,
		Items:        []model.Item{},
		Announcement: prev.Announcement,
	}
	if err := b.snap.Save(b.data); err != nil {
		b.data = prev
		return apperror.Storage("day reset", err)
	}

	b.logger.Info("day rolled over",
		slog.String("from", prev.DayKey),
		slog.String("to", key),
		slog.Int("discarded", len(prev.Items)),
	)
	return nil
}

// ListToday returns all current-day items newest first, projected to their
// public view, plus the current day key.
func (b *Board) ListToday() ([]model.PublicItem, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureDayLocked(b.now()); err != nil {
		return nil, "", err
	}

	items := make([]model.PublicItem, 0, len(b.data.Items))
	for _, it := range b.data.Items {
		items = append(items, it.Public())
	}
	// Newest first. SliceStable keeps insertion order for equal timestamps.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})

	return items, b.data.DayKey, nil
}

// ListReported returns only items with at least one report, sorted by report
// count descending with ties in stable original order. The caller is
// responsible for gating this behind admin authorization.
func (b *Board) ListReported() ([]model.PublicItem, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureDayLocked(b.now()); err != nil {
		return nil, "", err
	}

	items := make([]model.PublicItem, 0)
	for _, it := range b.data.Items {
		if it.ReportCount > 0 {
			items = append(items, it.Public())
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ReportCount > items[j].ReportCount
	})

	return items, b.data.DayKey, nil
}

// Create validates the input, appends a new item, and persists. The delete
// token in the return value is the ONLY time it ever leaves the server.
func (b *Board) Create(price, code string) (model.PublicItem, string, error) {
	price = strings.TrimSpace(price)
	code = strings.TrimSpace(code)

	if price == "" || code == "" {
		return model.PublicItem{}, "", apperror.ValidationFailed("price", "price and code are required")
	}
	if len(price) > MaxPriceLength {
		return model.PublicItem{}, "", apperror.ValidationFailed("price",
			fmt.Sprintf("price must be %d characters or less", MaxPriceLength))
	}
	if len(code) > MaxCodeLength {
		return model.PublicItem{}, "", apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}

	token, err := newDeleteToken()
	if err != nil {
		return model.PublicItem{}, "", fmt.Errorf("board: generating delete token: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if err := b.ensureDayLocked(now); err != nil {
		return model.PublicItem{}, "", err
	}

	item := model.Item{
		ID:          xid.New().String(),
		Price:       price,
		Code:        code,
		CreatedAt:   now.UnixMilli(),
		Reporters:   []string{},
		DeleteToken: token,
	}

	b.data.Items = append(b.data.Items, item)
	if err := b.snap.Save(b.data); err != nil {
		b.data.Items = b.data.Items[:len(b.data.Items)-1] // roll back
		return model.PublicItem{}, "", apperror.Storage("create item", err)
	}

	b.logger.Info("item created",
		slog.String("id", item.ID),
		slog.Int("count_today", len(b.data.Items)),
	)
	return item.Public(), token, nil
}

// DeleteByToken removes an item if the presented token matches the one
// issued at creation. Possession of the token IS the authorization — there
// are no accounts to check against.
func (b *Board) DeleteByToken(id, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperror.ValidationFailed("token", "delete token is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureDayLocked(b.now()); err != nil {
		return err
	}

	idx := b.indexOfLocked(id)
	if idx < 0 {
		return apperror.NotFound("item", id)
	}
	if b.data.Items[idx].DeleteToken != token {
		return apperror.Forbidden("invalid delete token")
	}

	return b.removeAtLocked(idx, "owner")
}

// DeleteByAdmin removes an item unconditionally. The caller must have passed
// the access gate before invoking this.
func (b *Board) DeleteByAdmin(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureDayLocked(b.now()); err != nil {
		return err
	}

	idx := b.indexOfLocked(id)
	if idx < 0 {
		return apperror.NotFound("item", id)
	}

	return b.removeAtLocked(idx, "admin")
}

// removeAtLocked deletes the item at idx and persists, restoring it at the
// same position if the save fails. Caller must hold b.mu.
func (b *Board) removeAtLocked(idx int, by string) error {
	removed := b.data.Items[idx]
	b.data.Items = append(b.data.Items[:idx], b.data.Items[idx+1:]...)

	if err := b.snap.Save(b.data); err != nil {
		// Reinsert at the original index so stable ordering is preserved.
		b.data.Items = append(b.data.Items[:idx],
			append([]model.Item{removed}, b.data.Items[idx:]...)...)
		return apperror.Storage("delete item", err)
	}

	b.logger.Info("item deleted",
		slog.String("id", removed.ID),
		slog.String("by", by),
	)
	return nil
}

// IncrementCopy bumps the item's copy counter and returns the new value.
// Deliberately no dedup: every call counts, repeats included — the counter
// is a popularity hint, not an audited metric.
func (b *Board) IncrementCopy(id string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureDayLocked(b.now()); err != nil {
		return 0, err
	}

	idx := b.indexOfLocked(id)
	if idx < 0 {
		return 0, apperror.NotFound("item", id)
	}

	item := &b.data.Items[idx]
	item.CopyCount++
	if err := b.snap.Save(b.data); err != nil {
		item.CopyCount--
		return 0, apperror.Storage("increment copy", err)
	}

	return item.CopyCount, nil
}

// Report records an abuse report, deduplicated per reporter id. A repeat
// report returns the unchanged count with alreadyReported=true and performs
// no disk write at all.
func (b *Board) Report(id, reporterID string) (int, bool, error) {
	reporterID = strings.TrimSpace(reporterID)
	if reporterID == "" {
		return 0, false, apperror.ValidationFailed("reporterId", "reporter id is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureDayLocked(b.now()); err != nil {
		return 0, false, err
	}

	idx := b.indexOfLocked(id)
	if idx < 0 {
		return 0, false, apperror.NotFound("item", id)
	}

	item := &b.data.Items[idx]
	if item.Reported(reporterID) {
		return item.ReportCount, true, nil
	}

	item.Reporters = append(item.Reporters, reporterID)
	item.ReportCount++
	if err := b.snap.Save(b.data); err != nil {
		item.Reporters = item.Reporters[:len(item.Reporters)-1]
		item.ReportCount--
		return 0, false, apperror.Storage("report item", err)
	}

	b.logger.Info("item reported",
		slog.String("id", item.ID),
		slog.Int("report_count", item.ReportCount),
	)
	return item.ReportCount, false, nil
}

// Stats returns the public counters for the countdown display.
func (b *Board) Stats() (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if err := b.ensureDayLocked(now); err != nil {
		return Stats{}, err
	}

	return Stats{
		ItemCount:         len(b.data.Items),
		SecondsToMidnight: daycycle.SecondsToMidnight(now),
		ServerTime:        now.UnixMilli(),
		DayKey:            b.data.DayKey,
	}, nil
}

// Announcement returns the active announcement, or nil if the slot is empty.
// The returned value is a copy — callers cannot mutate board state through it.
func (b *Board) Announcement() (*model.Announcement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureDayLocked(b.now()); err != nil {
		return nil, err
	}

	if b.data.Announcement == nil {
		return nil, nil
	}
	a := *b.data.Announcement
	return &a, nil
}

// PublishAnnouncement sets or clears the announcement slot. Empty text after
// trimming is the designated clear path, not an error. The caller must have
// passed the access gate.
func (b *Board) PublishAnnouncement(text string) (*model.Announcement, error) {
	text = strings.TrimSpace(text)
	if len(text) > MaxAnnouncementLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("announcement must be %d characters or less", MaxAnnouncementLength))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if err := b.ensureDayLocked(now); err != nil {
		return nil, err
	}

	prev := b.data.Announcement
	if text == "" {
		b.data.Announcement = nil
	} else {
		b.data.Announcement = &model.Announcement{
			Text:      text,
			UpdatedAt: now.UnixMilli(),
		}
	}

	if err := b.snap.Save(b.data); err != nil {
		b.data.Announcement = prev
		return nil, apperror.Storage("publish announcement", err)
	}

	if b.data.Announcement == nil {
		b.logger.Info("announcement cleared")
		return nil, nil
	}
	b.logger.Info("announcement published", slog.Int("length", len(text)))
	a := *b.data.Announcement
	return &a, nil
}

// indexOfLocked returns the position of the item with the given id, or -1.
// Linear scan is the right tool here: the dataset is a single day's worth of
// posts, and an index map would have to be rebuilt on every rollover.
func (b *Board) indexOfLocked(id string) int {
	for i := range b.data.Items {
		if b.data.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// newDeleteToken generates the owner's possession secret: 16 bytes from
// crypto/rand, hex encoded.
//
// WHY NOT xid LIKE THE ITEM ID?
// xid values embed a timestamp and a counter — fine for a public identifier,
// but guessable for anything secret. The delete token authorizes deletion,
// so it must be unpredictable.
func newDeleteToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
