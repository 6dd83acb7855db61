package eventtap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuxControlRoundTrip(t *testing.T) {
	tests := []struct {
		key    MediaKey
		down   bool
		repeat bool
	}{
		{MediaPlay, true, false},
		{MediaPlay, false, false},
		{MediaSoundUp, true, true},
		{MediaIlluminationTog, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			key, down, repeat := DecodeAuxControl(EncodeAuxControl(tt.key, tt.down, tt.repeat))
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.down, down)
			assert.Equal(t, tt.repeat, repeat)
		})
	}
}

func TestDecodeAuxControl_KnownValue(t *testing.T) {
	// Play key down as delivered by the keyboard driver.
	key, down, repeat := DecodeAuxControl(0x100A00)
	assert.Equal(t, MediaPlay, key)
	assert.True(t, down)
	assert.False(t, repeat)
}

func TestParseMediaKey(t *testing.T) {
	k, err := ParseMediaKey("Volume-Up")
	require.NoError(t, err)
	assert.Equal(t, MediaSoundUp, k)

	k, err = ParseMediaKey(" play ")
	require.NoError(t, err)
	assert.Equal(t, MediaPlay, k)

	_, err = ParseMediaKey("warp")
	assert.Error(t, err)
}

func TestMediaKeyString(t *testing.T) {
	assert.Equal(t, "next", MediaNext.String())
	assert.Equal(t, "media_key(99)", MediaKey(99).String())
}

func TestParseKeyCode(t *testing.T) {
	code, err := ParseKeyCode("Tab")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x30), code)
	assert.Equal(t, "tab", KeyCodeName(code))

	_, err = ParseKeyCode("hyper")
	assert.Error(t, err)
	assert.Empty(t, KeyCodeName(0xFF))
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "key_down", KeyDown.String())
	assert.Equal(t, "tap_disabled_by_timeout", TapDisabledByTimeout.String())
	assert.Equal(t, "event_type(3)", EventType(3).String())
}
