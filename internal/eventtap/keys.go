package eventtap

import (
	"fmt"
	"strings"
)

// AuxControlSubtype is the NSEvent subtype of auxiliary control buttons
// (media, volume and brightness keys).
const AuxControlSubtype int16 = 8

// MediaKey is an NX_KEYTYPE code carried by auxiliary control events.
type MediaKey int

const (
	MediaSoundUp          MediaKey = 0
	MediaSoundDown        MediaKey = 1
	MediaBrightnessUp     MediaKey = 2
	MediaBrightnessDown   MediaKey = 3
	MediaCapsLock         MediaKey = 4
	MediaHelp             MediaKey = 5
	MediaPower            MediaKey = 6
	MediaMute             MediaKey = 7
	MediaNumLock          MediaKey = 10
	MediaContrastUp       MediaKey = 11
	MediaContrastDown     MediaKey = 12
	MediaLaunchPanel      MediaKey = 13
	MediaEject            MediaKey = 14
	MediaVidMirror        MediaKey = 15
	MediaPlay             MediaKey = 16
	MediaNext             MediaKey = 17
	MediaPrevious         MediaKey = 18
	MediaFast             MediaKey = 19
	MediaRewind           MediaKey = 20
	MediaIlluminationUp   MediaKey = 21
	MediaIlluminationDown MediaKey = 22
	MediaIlluminationTog  MediaKey = 23
)

var mediaKeyNames = map[MediaKey]string{
	MediaSoundUp:          "volume_up",
	MediaSoundDown:        "volume_down",
	MediaBrightnessUp:     "brightness_up",
	MediaBrightnessDown:   "brightness_down",
	MediaCapsLock:         "caps_lock",
	MediaHelp:             "help",
	MediaPower:            "power",
	MediaMute:             "mute",
	MediaNumLock:          "num_lock",
	MediaContrastUp:       "contrast_up",
	MediaContrastDown:     "contrast_down",
	MediaLaunchPanel:      "launch_panel",
	MediaEject:            "eject",
	MediaVidMirror:        "video_mirror",
	MediaPlay:             "play",
	MediaNext:             "next",
	MediaPrevious:         "previous",
	MediaFast:             "fast",
	MediaRewind:           "rewind",
	MediaIlluminationUp:   "illumination_up",
	MediaIlluminationDown: "illumination_down",
	MediaIlluminationTog:  "illumination_toggle",
}

var mediaKeysByName = func() map[string]MediaKey {
	m := make(map[string]MediaKey, len(mediaKeyNames))
	for k, name := range mediaKeyNames {
		m[name] = k
	}
	return m
}()

// String returns the configuration name of the media key.
func (k MediaKey) String() string {
	if name, ok := mediaKeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("media_key(%d)", int(k))
}

// ParseMediaKey parses a media key name such as "play" or "volume_up".
func ParseMediaKey(name string) (MediaKey, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	if k, ok := mediaKeysByName[n]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown media key: %q", name)
}

// DecodeAuxControl unpacks data1 of an auxiliary control event.
//
// Layout: bits 16-31 hold the key code, bits 8-15 the key state
// (0x0A down, 0x0B up), and bit 0 the repeat flag.
func DecodeAuxControl(data1 int64) (key MediaKey, down, repeat bool) {
	key = MediaKey((data1 & 0xFFFF0000) >> 16)
	flags := data1 & 0xFFFF
	state := (flags & 0xFF00) >> 8
	return key, state == 0x0A, flags&0x1 != 0
}

// EncodeAuxControl is the inverse of DecodeAuxControl.
func EncodeAuxControl(key MediaKey, down, repeat bool) int64 {
	state := int64(0x0B)
	if down {
		state = 0x0A
	}
	data1 := int64(key)<<16 | state<<8
	if repeat {
		data1 |= 0x1
	}
	return data1
}

// ANSI virtual key codes for keys hosts commonly claim.
var keyCodeNames = map[uint16]string{
	0x00: "a", 0x01: "s", 0x02: "d", 0x03: "f", 0x04: "h", 0x05: "g",
	0x06: "z", 0x07: "x", 0x08: "c", 0x09: "v", 0x0B: "b", 0x0C: "q",
	0x0D: "w", 0x0E: "e", 0x0F: "r", 0x10: "y", 0x11: "t", 0x12: "1",
	0x13: "2", 0x14: "3", 0x15: "4", 0x16: "6", 0x17: "5", 0x19: "9",
	0x1A: "7", 0x1C: "8", 0x1D: "0", 0x1F: "o", 0x20: "u", 0x22: "i",
	0x23: "p", 0x25: "l", 0x26: "j", 0x28: "k", 0x2D: "n", 0x2E: "m",
	0x24: "return", 0x30: "tab", 0x31: "space", 0x33: "delete",
	0x35: "escape", 0x32: "grave",
	0x7A: "f1", 0x78: "f2", 0x63: "f3", 0x76: "f4", 0x60: "f5", 0x61: "f6",
	0x62: "f7", 0x64: "f8", 0x65: "f9", 0x6D: "f10", 0x67: "f11", 0x6F: "f12",
	0x7B: "left", 0x7C: "right", 0x7D: "down", 0x7E: "up",
}

var keyCodesByName = func() map[string]uint16 {
	m := make(map[string]uint16, len(keyCodeNames))
	for code, name := range keyCodeNames {
		m[name] = code
	}
	return m
}()

// KeyCodeName returns the name of a virtual key code, or "" if unknown.
func KeyCodeName(code uint16) string {
	return keyCodeNames[code]
}

// ParseKeyCode parses a key name such as "tab" or "f3".
func ParseKeyCode(name string) (uint16, error) {
	if code, ok := keyCodesByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code, nil
	}
	return 0, fmt.Errorf("unknown key: %q", name)
}
