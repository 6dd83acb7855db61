package eventtap

// attachment is the per-mode strategy for connecting a tap's source to a
// run loop. detach must guarantee that no callback is delivered through the
// attachment once it returns, as far as the mode allows.
type attachment interface {
	attach()
	detach()
}

// mainAttachment services the source on the host's main run loop.
type mainAttachment struct {
	loop   RunLoop
	source Source
}

func (a *mainAttachment) attach() {
	a.loop.AddSource(a.source)
}

// detach removes the source synchronously. A callback already running on
// the main thread may still complete.
func (a *mainAttachment) detach() {
	a.loop.RemoveSource(a.source)
}

// threadAttachment services the source on a Runner's OS thread.
type threadAttachment struct {
	runner *Runner
}

func (a *threadAttachment) attach() {
	a.runner.Start()
}

// detach cancels the runner and joins it; no callback fires afterwards.
func (a *threadAttachment) detach() {
	a.runner.Cancel()
	a.runner.Join()
}
