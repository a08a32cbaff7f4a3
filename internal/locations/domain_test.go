package locations

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocationSerializesWithSnakeCaseKeys(t *testing.T) {
	raw, err := json.Marshal(Location{Name: "Gaveta A1", Kind: KindBin, Lifecycle: LifecycleOpen})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "name")
	require.Contains(t, decoded, "created_at")
	require.Equal(t, "OPEN", decoded["lifecycle"])
	require.NotContains(t, decoded, "CreatedAt")
}
