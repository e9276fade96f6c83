package dataset

import (
	"sync/atomic"

	"campaign-analytics/internal/model"
)

// Holder publishes the table currently served. Readers take one pointer per
// request; a reload replaces the pointer and never touches the old table.
type Holder struct {
	current atomic.Pointer[model.Table]
}

// NewHolder returns a Holder serving t.
func NewHolder(t *model.Table) *Holder {
	h := &Holder{}
	h.current.Store(t)
	return h
}

// Table returns the current table.
func (h *Holder) Table() *model.Table {
	return h.current.Load()
}

// Swap installs t and returns the previous table.
func (h *Holder) Swap(t *model.Table) *model.Table {
	return h.current.Swap(t)
}
