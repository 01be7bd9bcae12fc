package plugin

import (
	"testing"

	"github.com/golangci/plugin-module-register/register"
	"github.com/stretchr/testify/require"
)

func TestPlugin_Registered(t *testing.T) {
	newPlugin, err := register.GetPlugin("gozeebe")
	require.NoError(t, err)

	p, err := newPlugin(map[string]any{
		"registrations": map[string]any{"(*example.com/payments.Registry).Add": 1},
	})
	require.NoError(t, err)
	require.Equal(t, register.LoadModeTypesInfo, p.GetLoadMode())

	analyzers, err := p.BuildAnalyzers()
	require.NoError(t, err)
	require.Len(t, analyzers, 1)
	require.Equal(t, "gozeebe", analyzers[0].Name)
}

func TestPlugin_UnknownSetting(t *testing.T) {
	_, err := New(map[string]any{"strict": true})
	require.Error(t, err)
}

func TestPlugin_NoSettings(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	analyzers, err := p.BuildAnalyzers()
	require.NoError(t, err)
	require.Len(t, analyzers, 1)
}
