package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_UnmarshalNumericID(t *testing.T) {
	// старые записи имеют числовой id (Date.now())
	raw := []byte(`{"id": 1717171717171, "name": "Shirt", "lastUpdated": 1700000000000, "quantity": 4}`)

	var r Record
	require.NoError(t, json.Unmarshal(raw, &r))

	assert.Equal(t, "1717171717171", r.ID)
	assert.Equal(t, int64(1700000000000), r.LastUpdated)
	assert.JSONEq(t, `{"name":"Shirt","quantity":4}`, string(r.Payload))

	var p Product
	require.NoError(t, r.Decode(&p))
	assert.Equal(t, "1717171717171", p.ID)
	assert.Equal(t, "Shirt", p.Name)
	assert.Equal(t, 4, p.Quantity)
	assert.Equal(t, int64(1700000000000), p.LastUpdated)
}

func TestRecord_MarshalOverridesIdentity(t *testing.T) {
	r := Record{
		ID:          "p-1",
		LastUpdated: 42,
		Payload:     json.RawMessage(`{"id":"stale","lastUpdated":1,"name":"Hat"}`),
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "p-1", fields["id"])
	assert.Equal(t, float64(42), fields["lastUpdated"])
	assert.Equal(t, "Hat", fields["name"])
}

func TestRecord_RoundTripKeepsPayload(t *testing.T) {
	orig := Record{ID: "p-1", LastUpdated: 1_700_000_000_123, Payload: json.RawMessage(`{"name":"fresh","quantity":1}`)}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, orig.ID, back.ID)
	assert.Equal(t, orig.LastUpdated, back.LastUpdated)
	assert.JSONEq(t, string(orig.Payload), string(back.Payload))

	// повторная запись не тащит старый lastUpdated внутри payload
	restamped, err := json.Marshal(back.Stamped(5))
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(restamped, &fields))
	assert.Equal(t, float64(5), fields["lastUpdated"])
}

func TestRecord_MarshalRejectsNonObjectPayload(t *testing.T) {
	_, err := json.Marshal(Record{ID: "x", Payload: json.RawMessage(`[1,2]`)})
	assert.Error(t, err)
}

func TestNewRecord_FromProduct(t *testing.T) {
	p := Product{ID: "p-9", Name: "Mug", Price: decimal.RequireFromString("12.50"), Quantity: 3, LastUpdated: 7}

	r, err := NewRecord(p)
	require.NoError(t, err)
	assert.Equal(t, "p-9", r.ID)
	assert.Equal(t, int64(7), r.LastUpdated)

	var back Product
	require.NoError(t, r.Stamped(99).Decode(&back))
	assert.Equal(t, int64(99), back.LastUpdated)
	assert.True(t, back.Price.Equal(p.Price))
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusPending, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPending, StatusShipped, false},
		{StatusShipped, StatusPending, false},
		{StatusDelivered, StatusConfirmed, false},
		{StatusDelivered, StatusArchived, true},
		{StatusShipped, StatusCancelled, true},
		{StatusArchived, StatusCancelled, true},
		{StatusArchived, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusArchived, false},
		{StatusPending, OrderStatus("Lost"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestProduct_Deduct(t *testing.T) {
	t.Run("no variants floors at zero", func(t *testing.T) {
		p := Product{Quantity: 5}
		assert.True(t, p.Deduct(3, "", ""))
		assert.Equal(t, 2, p.Quantity)
		assert.True(t, p.Deduct(10, "", ""))
		assert.Equal(t, 0, p.Quantity)
		assert.False(t, p.Deduct(1, "", ""))
	})

	t.Run("variant and aggregate", func(t *testing.T) {
		p := Product{
			Quantity: 6,
			Variants: []Variant{
				{Size: "M", Color: "red", Quantity: 2},
				{Size: "L", Color: "red", Quantity: 4},
			},
		}
		assert.True(t, p.Deduct(3, "L", "red"))
		assert.Equal(t, 1, p.Variants[1].Quantity)
		assert.Equal(t, 2, p.Variants[0].Quantity)
		assert.Equal(t, 3, p.Quantity)
	})

	t.Run("partial attributes never match", func(t *testing.T) {
		tests := []struct {
			name     string
			size     string
			color    string
			variants []Variant
		}{
			{"color only against size-only variants", "", "red", []Variant{{Size: "S", Quantity: 5}, {Size: "M", Quantity: 5}}},
			{"size only against sized and colored variants", "M", "", []Variant{{Size: "M", Color: "red", Quantity: 5}}},
			{"size and color against size-only variant", "S", "red", []Variant{{Size: "S", Quantity: 5}}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := Product{Quantity: 10, Variants: tt.variants}
				assert.Nil(t, p.FindVariant(tt.size, tt.color))
				assert.True(t, p.Deduct(2, tt.size, tt.color))
				for _, v := range p.Variants {
					assert.Equal(t, 5, v.Quantity)
				}
				assert.Equal(t, 8, p.Quantity)
			})
		}
	})

	t.Run("size-only variant matches size-only request", func(t *testing.T) {
		p := Product{Quantity: 10, Variants: []Variant{{Size: "S", Quantity: 5}, {Size: "M", Quantity: 5}}}
		assert.True(t, p.Deduct(2, "M", ""))
		assert.Equal(t, 5, p.Variants[0].Quantity)
		assert.Equal(t, 3, p.Variants[1].Quantity)
	})

	t.Run("unknown variant still deducts aggregate", func(t *testing.T) {
		p := Product{Quantity: 4, Variants: []Variant{{Size: "S", Quantity: 4}}}
		assert.True(t, p.Deduct(1, "XL", ""))
		assert.Equal(t, 4, p.Variants[0].Quantity)
		assert.Equal(t, 3, p.Quantity)
	})
}

func TestLookup(t *testing.T) {
	c, err := Lookup(CollectionProducts)
	require.NoError(t, err)
	assert.True(t, c.IsCatalog())

	c, err = Lookup(CollectionSiteSettings)
	require.NoError(t, err)
	assert.True(t, c.Singleton)
	assert.False(t, c.IsCatalog())

	_, err = Lookup("nope")
	assert.Error(t, err)

	for _, c := range SharedCollections() {
		assert.False(t, c.LocalOnly, c.Name)
	}
	assert.Len(t, SharedCollections(), 9)
}

func TestDecodeSnapshot(t *testing.T) {
	orders, err := Lookup(CollectionOrders)
	require.NoError(t, err)
	settings, err := Lookup(CollectionSiteSettings)
	require.NoError(t, err)

	tests := []struct {
		name    string
		col     Collection
		raw     string
		wantIDs []string
		wantErr bool
	}{
		{name: "null", col: orders, raw: `null`, wantIDs: []string{}},
		{name: "empty", col: orders, raw: ``, wantIDs: []string{}},
		{name: "array", col: orders, raw: `[{"id":"a"},{"id":2}]`, wantIDs: []string{"a", "2"}},
		{
			name:    "keyed object sorted by key, key used as missing id",
			col:     orders,
			raw:     `{"-Nb":{"id":"second"},"-Na":{"total":1},"-Nc":null}`,
			wantIDs: []string{"-Na", "second"},
		},
		{name: "singleton object", col: settings, raw: `{"storeName":"x"}`, wantIDs: []string{CollectionSiteSettings}},
		{name: "scalar", col: orders, raw: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeSnapshot(tt.col, []byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestEncodeSnapshot_Singleton(t *testing.T) {
	settings, err := Lookup(CollectionSiteSettings)
	require.NoError(t, err)

	raw, err := EncodeSnapshot(settings, nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	raw, err = EncodeSnapshot(settings, []Record{{ID: "s", Payload: json.RawMessage(`{"a":1}`)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s","lastUpdated":0,"a":1}`, string(raw))
}
