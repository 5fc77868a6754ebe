// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

// Item represents one board entry: a price label plus an opaque code string,
// visible for the current day only.
//
// WHY int64 MILLISECONDS INSTEAD OF time.Time?
// The snapshot file stores timestamps as milliseconds since the Unix epoch,
// and the frontend consumes them the same way (JavaScript's Date.now()
// convention). Keeping them as int64 means the struct marshals to exactly
// the persisted/wire shape with no custom (Un)MarshalJSON needed.
//
// TWO FIELDS NEVER LEAVE THE SERVER:
// - DeleteToken is the owner's possession secret, returned exactly once in
//   the creation response and never listed afterwards.
// - Reporters is the set of reporter ids used to deduplicate abuse reports.
// Both are excluded from PublicItem, which is the only item shape handlers
// ever serialize in listings.
type Item struct {
	ID          string   `json:"id"`
	Price       string   `json:"price"`
	Code        string   `json:"code"`
	CreatedAt   int64    `json:"createdAt"` // milliseconds since epoch
	CopyCount   int      `json:"copyCount"`
	ReportCount int      `json:"reportCount"`
	Reporters   []string `json:"reporters"`
	DeleteToken string   `json:"deleteToken"`
}

// PublicItem is the projection of Item exposed through the API.
// Invariant: no field here can identify a reporter or authorize a deletion.
type PublicItem struct {
	ID          string `json:"id"`
	Price       string `json:"price"`
	Code        string `json:"code"`
	CreatedAt   int64  `json:"createdAt"`
	CopyCount   int    `json:"copyCount"`
	ReportCount int    `json:"reportCount"`
}

// Public returns the externally visible view of the item.
func (i Item) Public() PublicItem {
	return PublicItem{
		ID:          i.ID,
		Price:       i.Price,
		Code:        i.Code,
		CreatedAt:   i.CreatedAt,
		CopyCount:   i.CopyCount,
		ReportCount: i.ReportCount,
	}
}

// Reported reports whether the given reporter id has already reported this item.
func (i Item) Reported(reporterID string) bool {
	for _, r := range i.Reporters {
		if r == reporterID {
			return true
		}
	}
	return false
}

// Announcement is the single-slot broadcast record, independent of the day
// cycle. A nil *Announcement means "no active announcement".
type Announcement struct {
	Text      string `json:"text"`
	UpdatedAt int64  `json:"updatedAt"` // milliseconds since epoch
}

// Dataset is the root persisted object — the sole unit of durability.
// The whole struct is rewritten to disk on every mutation.
//
// WHY ONE BIG OBJECT?
// The board intentionally holds a single day's worth of data (small), so a
// full rewrite per mutation is cheap and buys us a very strong property:
// the on-disk file is always one complete, self-consistent snapshot.
type Dataset struct {
	DayKey       string        `json:"dayKey"`
	Items        []Item        `json:"items"`
	Announcement *Announcement `json:"announcement"`
}

// NewDataset returns a fresh empty dataset for the given day key.
func NewDataset(dayKey string) *Dataset {
	return &Dataset{
		DayKey: dayKey,
		Items:  []Item{},
	}
}
