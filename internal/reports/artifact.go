package reports

import "simcheck/internal/store"

// Artifact is report content produced by a scoring engine or web provider.
// Name is the filename stem; the manager makes the final filename unique.
type Artifact struct {
	Kind        store.ReportKind
	Name        string
	Ext         string
	ContentType string
	Body        []byte
}
