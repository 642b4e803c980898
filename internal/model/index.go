package model

import "time"

// EntryStatus is the harvest-visible state of an indexed document.
type EntryStatus string

const (
	StatusActive  EntryStatus = "active"
	StatusDeleted EntryStatus = "deleted"
)

// IndexEntry is the denormalised, harvest-facing view of one document that
// was public at least once.  DocumentID survives deletion so tombstones
// keep their identifier.
type IndexEntry struct {
	ID           int64       `db:"id"            json:"id"`
	DocumentID   string      `db:"document_id"   json:"document_id"`
	TemplateID   int64       `db:"template_id"   json:"template_id"`
	Status       EntryStatus `db:"status"        json:"status"`
	LastModified time.Time   `db:"last_modified" json:"last_modified"`
}

// Deleted reports whether the entry is a tombstone.
func (e IndexEntry) Deleted() bool { return e.Status == StatusDeleted }

// EntryQuery selects index entries for one page of a listing.  A nil From
// or Until leaves that side unbounded; both bounds are inclusive.
type EntryQuery struct {
	TemplateIDs []int64
	From        *time.Time
	Until       *time.Time
	Offset      int
	Limit       int
}

// EntryPage is one page of entries plus the size of the full result.
type EntryPage struct {
	Total   int
	Entries []IndexEntry
}
