package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordSerializesWithSnakeCaseKeys(t *testing.T) {
	raw, err := json.Marshal(Record{ItemCode: "SKU-1", Qty: 3, LocationName: "Gaveta A1"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "item_code")
	require.Contains(t, decoded, "location_name")
	require.Contains(t, decoded, "wholesale_price")
	require.NotContains(t, decoded, "ItemCode")
}

func TestItemSerializesWithSnakeCaseKeys(t *testing.T) {
	raw, err := json.Marshal(Item{Code: "SKU-1", Name: "Widget"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "code")
	require.Contains(t, decoded, "retail_price")
	require.NotContains(t, decoded, "RetailPrice")
}
