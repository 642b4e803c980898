package model

import "time"

// ResumptionPage is the persisted state of a suspended listing.  Rows are
// written once and never updated; PageNumber is the next page to serve.
type ResumptionPage struct {
	Token          string     `db:"token"`
	TemplateIDs    []int64    `db:"-"`
	MetadataPrefix string     `db:"metadata_prefix"`
	SetSpec        *string    `db:"set_spec"`
	From           *time.Time `db:"from_date"`
	Until          *time.Time `db:"until_date"`
	PageNumber     int        `db:"page_number"`
	ExpiresAt      time.Time  `db:"expires_at"`
}

// Expired reports whether the page is no longer resumable at now.
func (p ResumptionPage) Expired(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}
