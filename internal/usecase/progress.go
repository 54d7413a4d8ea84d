package usecase

import "github.com/eliteGoblin/screenshooter/internal/domain"

// NopProgressSink ignores every event.
type NopProgressSink struct{}

func (NopProgressSink) OnProgress(current, total int) {}
func (NopProgressSink) OnFinished()                   {}
func (NopProgressSink) OnFailed(err error)            {}
func (NopProgressSink) OnCancelled()                  {}

// ProgressFuncs adapts plain functions to domain.ProgressSink. Nil fields are skipped.
type ProgressFuncs struct {
	Progress  func(current, total int)
	Finished  func()
	Failed    func(err error)
	Cancelled func()
}

func (f ProgressFuncs) OnProgress(current, total int) {
	if f.Progress != nil {
		f.Progress(current, total)
	}
}

func (f ProgressFuncs) OnFinished() {
	if f.Finished != nil {
		f.Finished()
	}
}

func (f ProgressFuncs) OnFailed(err error) {
	if f.Failed != nil {
		f.Failed(err)
	}
}

func (f ProgressFuncs) OnCancelled() {
	if f.Cancelled != nil {
		f.Cancelled()
	}
}

// MultiSink fans events out to several sinks in order.
type MultiSink []domain.ProgressSink

func (m MultiSink) OnProgress(current, total int) {
	for _, s := range m {
		s.OnProgress(current, total)
	}
}

func (m MultiSink) OnFinished() {
	for _, s := range m {
		s.OnFinished()
	}
}

func (m MultiSink) OnFailed(err error) {
	for _, s := range m {
		s.OnFailed(err)
	}
}

func (m MultiSink) OnCancelled() {
	for _, s := range m {
		s.OnCancelled()
	}
}

var (
	_ domain.ProgressSink = NopProgressSink{}
	_ domain.ProgressSink = ProgressFuncs{}
	_ domain.ProgressSink = MultiSink{}
)

// CommandStatusFuncs adapts plain functions to domain.CommandStatusListener.
type CommandStatusFuncs struct {
	Sent   func()
	Failed func(err error)
}

func (f CommandStatusFuncs) OnCommandSent() {
	if f.Sent != nil {
		f.Sent()
	}
}

func (f CommandStatusFuncs) OnCommandFailed(err error) {
	if f.Failed != nil {
		f.Failed(err)
	}
}

var _ domain.CommandStatusListener = CommandStatusFuncs{}
