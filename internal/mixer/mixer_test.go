package mixer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputswitch/internal/logger"
)

func TestNewUnknownKind(t *testing.T) {
	_, err := New(Config{Kind: "pulseaudio"}, logger.NewTestLogger())
	assert.ErrorIs(t, err, ErrUnsupportedMixer)
}

func TestNewCamillaDSPDefaults(t *testing.T) {
	m, err := New(Config{}, logger.NewTestLogger())
	require.NoError(t, err)
	defer m.Close()

	c, ok := m.(*CamillaDSP)
	require.True(t, ok)
	assert.Equal(t, defaultCamillaURL, c.url)
	assert.Equal(t, defaultRequestTimeout, c.timeout)
}

func TestNewResendsEveryRequest(t *testing.T) {
	server, url := newFakeCamilla(t)

	m, err := New(Config{Kind: KindCamillaDSP, CamillaDSP: CamillaDSPConfig{URL: url, TimeoutMs: 200}}, logger.NewTestLogger())
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	require.NoError(t, m.SetMute(ctx, 1, true))
	require.NoError(t, m.SetMute(ctx, 1, true))

	// The DSP goes away and comes back unmuted; the next request re-applies it.
	server.mu.Lock()
	server.dropNext = true
	server.mu.Unlock()
	assert.Error(t, m.SetMute(ctx, 1, true))
	require.NoError(t, m.SetMute(ctx, 1, true))

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Len(t, server.commands, 4)
	for _, cmd := range server.commands {
		assert.Equal(t, `{"SetFaderMute":[1,true]}`, cmd)
	}
}
