//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-panel/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IdentitySource answers "who is logged in".
// fast=true only reads local state: cheap, but a tampered local environment can spoof it.
// fast=false asks the identity provider.
type IdentitySource interface {
	CurrentIdentity(ctx context.Context, fast bool) (domain.Identity, bool)
}

// NameResolver turns user ids into display names.
type NameResolver interface {
	Resolve(ctx context.Context, userID string) string
	Cached(userID string) (string, bool)
	Color(name string) string
}

// TranscriptView receives every rendered state of the transcript.
// Render is an upsert keyed by message id.
type TranscriptView interface {
	Render(entry domain.Entry)
	Remove(id string)
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// Notice is a transient, user-visible message.
type Notice struct {
	Level    NoticeLevel
	Title    string
	Message  string
	Duration time.Duration
}

type Notifier interface {
	Notify(notice Notice)
}

// Captcha stands for the anti-automation widget.
// An empty token means the challenge was not completed.
type Captcha interface {
	Token() string
	Reset()
}

// Telemetry is fire-and-forget: no method may block the caller.
type Telemetry interface {
	Identify(userID string, traits map[string]any)
	Capture(event string, properties map[string]any)
	OptIn() error
	OptOut() error
	OptedIn() bool
}
