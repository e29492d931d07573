// Package notify is the transient user-notification surface of the
// client core. Workflows report validation failures, backend rejections
// and progress through a Notifier; the embedding UI decides how to
// render them (toasts in the mobile app).
package notify

import "github.com/wachira567/victorsprings-client/internal/utils"

type Notifier interface {
	Info(message string)
	Success(message string)
	Error(message string)
}

// LogNotifier writes notifications to the shared logger. It is the
// default sink in headless contexts (cmd/, tests that don't assert on
// notifications).
type LogNotifier struct{}

func (LogNotifier) Info(message string)    { utils.Logger.Info(message) }
func (LogNotifier) Success(message string) { utils.Logger.Info(message) }
func (LogNotifier) Error(message string)   { utils.Logger.Warn(message) }

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	Infos     []string
	Successes []string
	Errors    []string
}

func (r *Recorder) Info(message string)    { r.Infos = append(r.Infos, message) }
func (r *Recorder) Success(message string) { r.Successes = append(r.Successes, message) }
func (r *Recorder) Error(message string)   { r.Errors = append(r.Errors, message) }

// LastError returns the most recent error notification, or "".
func (r *Recorder) LastError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[len(r.Errors)-1]
}
