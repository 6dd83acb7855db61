// Package policy decides which events keyhook captures. It implements
// eventtap.Delegate from a set of rules that can be replaced at runtime.
package policy

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"keyhook/internal/eventtap"
)

// Spec is the textual form of the rules, as written in configuration.
type Spec struct {
	MediaKeys        []string
	Shortcuts        []string
	AllSystemDefined bool
	AllKeys          bool
}

// Rules is a compiled Spec.
type Rules struct {
	MediaKeys        map[eventtap.MediaKey]struct{}
	Shortcuts        []Shortcut
	AllSystemDefined bool
	AllKeys          bool
}

// Compile parses spec. All parse errors are reported together.
func Compile(spec Spec) (*Rules, error) {
	r := &Rules{
		MediaKeys:        make(map[eventtap.MediaKey]struct{}, len(spec.MediaKeys)),
		AllSystemDefined: spec.AllSystemDefined,
		AllKeys:          spec.AllKeys,
	}

	var errs []error
	for _, name := range spec.MediaKeys {
		k, err := eventtap.ParseMediaKey(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.MediaKeys[k] = struct{}{}
	}
	for _, s := range spec.Shortcuts {
		sc, err := ParseShortcut(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.Shortcuts = append(r.Shortcuts, sc)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("compile capture rules: %w", errors.Join(errs...))
	}
	return r, nil
}

// Empty reports whether r captures nothing.
func (r *Rules) Empty() bool {
	return r == nil || (!r.AllKeys && !r.AllSystemDefined && len(r.MediaKeys) == 0 && len(r.Shortcuts) == 0)
}

// Policy is an eventtap.Delegate backed by swappable Rules. It is safe to
// call from the tap callback while Update runs.
type Policy struct {
	rules atomic.Pointer[Rules]

	// held records key codes whose key-down was captured, so the matching
	// key-up is captured even when modifiers were released first.
	held sync.Map // uint16 -> struct{}

	keyHits    atomic.Uint64
	systemHits atomic.Uint64
}

var _ eventtap.Delegate = (*Policy)(nil)

// New creates a Policy. nil rules capture nothing.
func New(r *Rules) *Policy {
	p := &Policy{}
	p.Update(r)
	return p
}

// Update replaces the rules.
func (p *Policy) Update(r *Rules) {
	if r == nil {
		r = &Rules{}
	}
	p.rules.Store(r)
}

// Rules returns the current rules.
func (p *Policy) Rules() *Rules {
	return p.rules.Load()
}

// ShouldCaptureKeyEvent captures key-downs of configured shortcuts and
// the key-up of every captured key-down, whatever the modifier state at
// release, so the host never sees an unpaired key-up.
func (p *Policy) ShouldCaptureKeyEvent(ev *eventtap.KeyEvent) bool {
	r := p.rules.Load()
	if ev.Type == eventtap.KeyUp {
		if _, ok := p.held.LoadAndDelete(ev.KeyCode); ok || r.AllKeys {
			p.keyHits.Add(1)
			return true
		}
		return false
	}

	if r.AllKeys || p.matches(r, ev) {
		p.held.Store(ev.KeyCode, struct{}{})
		p.keyHits.Add(1)
		return true
	}
	if _, ok := p.held.Load(ev.KeyCode); ok && ev.Repeat {
		p.keyHits.Add(1)
		return true
	}
	return false
}

func (p *Policy) matches(r *Rules, ev *eventtap.KeyEvent) bool {
	for _, sc := range r.Shortcuts {
		if sc.Matches(ev) {
			return true
		}
	}
	return false
}

// ShouldCaptureSystemDefinedEvent captures configured media keys.
func (p *Policy) ShouldCaptureSystemDefinedEvent(ev *eventtap.SystemDefinedEvent) bool {
	r := p.rules.Load()
	if r.AllSystemDefined {
		p.systemHits.Add(1)
		return true
	}
	if !ev.IsAuxControl() {
		return false
	}
	if _, ok := r.MediaKeys[ev.Key]; ok {
		p.systemHits.Add(1)
		return true
	}
	return false
}

// Hits returns how many key and system-defined events were matched.
func (p *Policy) Hits() (keys, system uint64) {
	return p.keyHits.Load(), p.systemHits.Load()
}
