package sync

import "github.com/iudanet/shopkeeper/internal/models"

// Batch is the in-memory view of one collection inside Engine.Mutate.
// Put and Delete record what changed so the engine can stamp, emit and fan out.
type Batch struct {
	stamp   func() int64
	records []models.Record
	changed []string
	deleted []string
}

// Records returns the current records. The slice must not be retained after Mutate returns.
func (b *Batch) Records() []models.Record {
	return b.records
}

// Get returns a copy of the record with id.
func (b *Batch) Get(id string) (models.Record, bool) {
	if i := models.IndexOf(b.records, id); i >= 0 {
		return b.records[i].Clone(), true
	}
	return models.Record{}, false
}

// Put stamps the record with a fresh lastUpdated and upserts it.
// New records are appended at the end.
func (b *Batch) Put(rec models.Record) models.Record {
	rec = rec.Clone().Stamped(b.stamp())

	if i := models.IndexOf(b.records, rec.ID); i >= 0 {
		b.records[i] = rec
	} else {
		b.records = append(b.records, rec)
	}
	b.markChanged(rec.ID)

	return rec
}

// Delete removes the record and reports whether it existed.
func (b *Batch) Delete(id string) bool {
	i := models.IndexOf(b.records, id)
	if i < 0 {
		return false
	}

	b.records = append(b.records[:i], b.records[i+1:]...)
	b.deleted = append(b.deleted, id)

	// удаленная запись больше не считается измененной
	for j, c := range b.changed {
		if c == id {
			b.changed = append(b.changed[:j], b.changed[j+1:]...)
			break
		}
	}

	return true
}

// Dirty reports whether anything was put or deleted.
func (b *Batch) Dirty() bool {
	return len(b.changed) > 0 || len(b.deleted) > 0
}

func (b *Batch) markChanged(id string) {
	for _, c := range b.changed {
		if c == id {
			return
		}
	}
	b.changed = append(b.changed, id)
}

// MutateResult describes a committed Mutate call.
type MutateResult struct {
	Snapshot []models.Record // full collection after the change
	Changed  []models.Record // stamped records that were put
	Deleted  []string        // ids that were removed
}

func (b *Batch) result() *MutateResult {
	res := &MutateResult{
		Snapshot: cloneRecords(b.records),
		Deleted:  append([]string(nil), b.deleted...),
	}
	for _, id := range b.changed {
		if i := models.IndexOf(b.records, id); i >= 0 {
			res.Changed = append(res.Changed, b.records[i].Clone())
		}
	}
	return res
}

func cloneRecords(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	return out
}
