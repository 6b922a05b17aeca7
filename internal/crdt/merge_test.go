package crdt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shopkeeper/internal/models"
)

func rec(id string, ts int64, name string) models.Record {
	return models.Record{
		ID:          id,
		LastUpdated: ts,
		Payload:     json.RawMessage(`{"name":"` + name + `"}`),
	}
}

func TestResolve(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	grace := DefaultGraceWindow

	local := func(ts int64) *models.Record { r := rec("p1", ts, "local"); return &r }
	remote := func(ts int64) *models.Record { r := rec("p1", ts, "remote"); return &r }

	tests := []struct {
		name       string
		local      *models.Record
		remote     *models.Record
		wantSide   Side
		wantReason Reason
	}{
		{
			name:       "only remote",
			remote:     remote(10),
			wantSide:   SideRemote,
			wantReason: ReasonLocalAbsent,
		},
		{
			name:       "only local",
			local:      local(10),
			wantSide:   SideLocal,
			wantReason: ReasonRemoteAbsent,
		},
		{
			name:       "local newer",
			local:      local(100),
			remote:     remote(90),
			wantSide:   SideLocal,
			wantReason: ReasonTimestamp,
		},
		{
			name:       "remote newer, local outside grace",
			local:      local(100),
			remote:     remote(200),
			wantSide:   SideRemote,
			wantReason: ReasonTimestamp,
		},
		{
			name:       "remote newer, local inside grace",
			local:      local(now.UnixMilli() - 30_000),
			remote:     remote(now.UnixMilli()),
			wantSide:   SideLocal,
			wantReason: ReasonGraceWindow,
		},
		{
			name:       "grace boundary is exclusive",
			local:      local(now.UnixMilli() - 60_000),
			remote:     remote(now.UnixMilli()),
			wantSide:   SideRemote,
			wantReason: ReasonTimestamp,
		},
		{
			name:       "equal timestamps outside grace",
			local:      local(500),
			remote:     remote(500),
			wantSide:   SideRemote,
			wantReason: ReasonTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Resolve(tt.local, tt.remote, now, grace)
			assert.Equal(t, "p1", d.ID)
			assert.Equal(t, tt.wantSide, d.Chosen)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestMergeCollection(t *testing.T) {
	now := time.UnixMilli(10_000_000)

	local := []models.Record{
		rec("a", 100, "local-a"),   // локальная новее
		rec("b", 100, "local-b"),   // удаленная новее, вне grace
		rec("only-local", 5, "ol"), // нет в remote
	}
	remote := []models.Record{
		rec("c", 1, "remote-c"),
		rec("b", 200, "remote-b"),
		rec("a", 90, "remote-a"),
	}

	merged, decisions := MergeCollection(local, remote, now, DefaultGraceWindow)

	require.Len(t, merged, 4)
	require.Len(t, decisions, 4)

	ids := make([]string, len(merged))
	for i, r := range merged {
		ids[i] = r.ID
	}
	// порядок remote, затем только-локальные
	assert.Equal(t, []string{"c", "b", "a", "only-local"}, ids)

	assert.Equal(t, int64(200), merged[1].LastUpdated)
	assert.JSONEq(t, `{"name":"remote-b"}`, string(merged[1].Payload))
	assert.Equal(t, int64(100), merged[2].LastUpdated)
	assert.JSONEq(t, `{"name":"local-a"}`, string(merged[2].Payload))

	assert.Equal(t, SideLocal, decisions[3].Chosen)
	assert.Equal(t, ReasonRemoteAbsent, decisions[3].Reason)
}

func TestMergeCollection_DoesNotAliasInput(t *testing.T) {
	now := time.UnixMilli(10_000_000)
	local := []models.Record{rec("a", 100, "x")}

	merged, _ := MergeCollection(local, nil, now, DefaultGraceWindow)
	require.Len(t, merged, 1)

	merged[0].Payload[2] = 'Z'
	assert.JSONEq(t, `{"name":"x"}`, string(local[0].Payload))
}

func TestMergeCollection_DuplicateRemoteIDs(t *testing.T) {
	now := time.UnixMilli(10_000_000)
	remote := []models.Record{rec("a", 1, "first"), rec("a", 2, "second")}

	merged, decisions := MergeCollection(nil, remote, now, DefaultGraceWindow)

	require.Len(t, merged, 1)
	assert.Len(t, decisions, 1)
	assert.JSONEq(t, `{"name":"first"}`, string(merged[0].Payload))
}

func TestMergeCollection_Empty(t *testing.T) {
	merged, decisions := MergeCollection(nil, nil, time.Now(), DefaultGraceWindow)
	assert.Empty(t, merged)
	assert.Empty(t, decisions)
}
