// Package crdt holds the per-record conflict resolution used when the local
// cache is merged with the remote catalog on read.
package crdt

import (
	"time"

	"github.com/iudanet/shopkeeper/internal/models"
)

// DefaultGraceWindow is how long a fresh local write is preferred over remote data.
const DefaultGraceWindow = 60 * time.Second

// Side identifies the store a merged record was taken from.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)

// Reason explains a MergeDecision.
type Reason string

const (
	ReasonLocalAbsent  Reason = "local-absent"
	ReasonRemoteAbsent Reason = "remote-absent"
	ReasonTimestamp    Reason = "timestamp"
	ReasonGraceWindow  Reason = "grace-window"
)

// MergeDecision is the per-record choice made while merging.
type MergeDecision struct {
	ID     string
	Chosen Side
	Reason Reason
}

// Resolve applies last-write-wins with a grace window to one record id.
// local or remote may be nil (absent). Both nil is not a valid call.
//
//  1. local absent  -> remote
//  2. remote absent -> local
//  3. local.lastUpdated > remote.lastUpdated -> local
//  4. now - local.lastUpdated < grace -> local (masks propagation lag)
//  5. otherwise remote
//
// Concurrent edits from two devices are not detected; the later stamp wins.
func Resolve(local, remote *models.Record, now time.Time, grace time.Duration) MergeDecision {
	switch {
	case local == nil:
		return MergeDecision{ID: remote.ID, Chosen: SideRemote, Reason: ReasonLocalAbsent}
	case remote == nil:
		return MergeDecision{ID: local.ID, Chosen: SideLocal, Reason: ReasonRemoteAbsent}
	case local.LastUpdated > remote.LastUpdated:
		return MergeDecision{ID: local.ID, Chosen: SideLocal, Reason: ReasonTimestamp}
	case now.UnixMilli()-local.LastUpdated < grace.Milliseconds():
		return MergeDecision{ID: local.ID, Chosen: SideLocal, Reason: ReasonGraceWindow}
	default:
		return MergeDecision{ID: remote.ID, Chosen: SideRemote, Reason: ReasonTimestamp}
	}
}

// MergeCollection merges a remote snapshot into the local one record by record.
// The result keeps remote order, followed by local-only records in local order.
func MergeCollection(local, remote []models.Record, now time.Time, grace time.Duration) ([]models.Record, []MergeDecision) {
	localByID := make(map[string]*models.Record, len(local))
	for i := range local {
		localByID[local[i].ID] = &local[i]
	}

	merged := make([]models.Record, 0, max(len(local), len(remote)))
	decisions := make([]MergeDecision, 0, cap(merged))
	seen := make(map[string]struct{}, len(remote))

	for i := range remote {
		r := &remote[i]
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		l := localByID[r.ID]
		d := Resolve(l, r, now, grace)
		decisions = append(decisions, d)

		if d.Chosen == SideLocal {
			merged = append(merged, l.Clone())
		} else {
			merged = append(merged, r.Clone())
		}
	}

	for i := range local {
		if _, ok := seen[local[i].ID]; ok {
			continue
		}
		seen[local[i].ID] = struct{}{}
		decisions = append(decisions, Resolve(&local[i], nil, now, grace))
		merged = append(merged, local[i].Clone())
	}

	return merged, decisions
}
