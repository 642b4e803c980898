package model

// Set is a named selection of records.  A record belongs to the set when
// its template's version group is one of TemplateGroups.
type Set struct {
	ID             int64   `db:"id"          json:"id"`
	Spec           string  `db:"set_spec"    json:"set_spec"`
	Name           string  `db:"set_name"    json:"set_name"`
	Description    string  `db:"description" json:"description"`
	TemplateGroups []int64 `db:"-"           json:"template_groups"`
}
