package converter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_AssignValue(t *testing.T) {
	var retries int32
	require.NoError(t, AssignValue(DefaultConverter, int32(3), &retries))
	require.Equal(t, int32(3), retries)

	// Numeric variables arrive as float64
	var amount int
	require.NoError(t, AssignValue(DefaultConverter, 99.0, &amount))
	require.Equal(t, 99, amount)
}

func Test_AssignValue_NilResetsTarget(t *testing.T) {
	amount := 99
	require.NoError(t, AssignValue(DefaultConverter, nil, &amount))
	require.Zero(t, amount)

	approved := true
	require.NoError(t, AssignValue(DefaultConverter, nil, &approved))
	require.False(t, approved)
}

func Test_AssignValue_Struct(t *testing.T) {
	type order struct {
		ID       string    `json:"id"`
		PlacedAt time.Time `json:"placedAt"`
	}

	placed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var o order
	require.NoError(t, AssignValue(DefaultConverter, map[string]any{
		"id":       "order-1",
		"placedAt": placed.Format(time.RFC3339),
	}, &o))

	require.Equal(t, "order-1", o.ID)
	require.True(t, placed.Equal(o.PlacedAt))
}

func Test_AssignValue_RequiresPointer(t *testing.T) {
	var amount int
	require.ErrorContains(t, AssignValue(DefaultConverter, 42, amount), "pointer")
}

func Test_ToMap(t *testing.T) {
	type charge struct {
		Charged  int    `json:"charged"`
		Currency string `json:"currency,omitempty"`
	}

	vars, err := ToMap(DefaultConverter, charge{Charged: 10})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"charged": float64(10)}, vars)

	vars, err = ToMap(DefaultConverter, map[string]any{"charged": 10})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"charged": 10}, vars)

	vars, err = ToMap(DefaultConverter, nil)
	require.NoError(t, err)
	require.Nil(t, vars)

	_, err = ToMap(DefaultConverter, 10)
	require.ErrorContains(t, err, "not an object")
}

func Test_JSON_KeepsMarkup(t *testing.T) {
	data, err := JSON{}.To(map[string]string{"expr": "a < b && c"})
	require.NoError(t, err)
	require.Equal(t, `{"expr":"a < b && c"}`, string(data))
}
