// Package runtime wires the chat panel together and owns its lifecycle.
package runtime

import (
	"chat-panel/auth"
	"chat-panel/infrastructure/realtime"
	"chat-panel/infrastructure/rest"
	"chat-panel/internal"
	"chat-panel/moderation"
	"chat-panel/projection"
	"chat-panel/repositories"
	"chat-panel/runtime/workers"
	"chat-panel/search"
	"chat-panel/services"
	"chat-panel/session"
	"chat-panel/storage"
	"chat-panel/telemetry"
	"chat-panel/ui"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fasthttp/websocket"
)

const stopTimeout = 3 * time.Second

// App is the composition root: one per process, built in main and handed
// to the terminal UI as its ui.Actions.
type App struct {
	log    *slog.Logger
	config internal.Config

	captcha   *auth.StaticCaptcha
	sessions  *session.Store
	usernames *services.UsernameService
	engine    *projection.Engine
	listener  *realtime.Listener
	index     *search.Index
	telemetry *telemetry.Client
	chat      *services.ChatService
	auth      *services.AuthService

	supervisor *workers.Supervisor
	barrier    *Barrier

	Document *ui.Document
	Notices  *ui.Notices

	ready       chan struct{}
	stopped     chan struct{}
	cancel      context.CancelFunc
	unsubscribe func()
}

// NewApp builds every component. A nil dialer uses the default websocket dialer.
func NewApp(log *slog.Logger, config internal.Config, db *badger.DB, http rest.Doer, dialer *websocket.Dialer) (*App, error) {
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	moderator, err := moderation.NewModerator(log, internal.WordList(config.CensoredWords), replacement)
	if err != nil {
		return nil, fmt.Errorf("build moderator: %w", err)
	}
	index, err := search.NewIndex(log)
	if err != nil {
		return nil, err
	}

	backend := rest.NewClient(log, http, config.BackendURL, config.AnonKey, config.HTTPTimeout)
	local := storage.NewLocalStore(db, log)
	captcha := auth.NewStaticCaptcha(config.CaptchaToken)
	sessions := session.NewStore(log, auth.NewProvider(backend, config.RedirectURL), local, captcha)
	token := realtime.TokenSource(sessions.AccessToken)

	usernames := services.NewUsernameService(log,
		repositories.NewUsernameRepository(log, backend, token), sessions, config.NegativeCacheTTL)
	messages := repositories.NewMessageRepository(log, backend, token, config.HeartbeatInterval)

	document := ui.NewDocument(moderator)
	notices := ui.NewNotices()
	engine := projection.NewEngine(log, messages, sessions, usernames,
		config.LimitMessages, config.BufferSize, document, index)
	listener := messages.Subscribe(engine.HandleChange)
	if dialer != nil {
		listener.WithDialer(dialer)
	}

	var sink *rest.Client
	if config.TelemetryEnabled() {
		sink = rest.NewClient(log, http, config.TelemetryHost, config.TelemetryKey, config.HTTPTimeout)
	}
	tel := telemetry.NewClient(log, sink, local, config.TelemetryKey, config.TelemetryQueueSize)

	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	supervisor.Add(
		sessions,
		engine,
		listener,
		session.NewRefresher(log, sessions, config.TokenRefreshMargin),
		workers.NewTelemetryWorker(log, tel, config.TelemetryFlushInterval, config.TelemetryBatchSize),
		workers.NewChannelCapacityWorker(log, []workers.NamedChannel{
			{Name: "engine", Usage: engine.Backlog},
			{Name: "telemetry", Usage: tel.Backlog},
		}, tel, config.MetricInterval),
	)

	return &App{
		log:        log,
		config:     config,
		captcha:    captcha,
		sessions:   sessions,
		usernames:  usernames,
		engine:     engine,
		listener:   listener,
		index:      index,
		telemetry:  tel,
		chat:       services.NewChatService(log, engine, notices, tel, config.NoticeDuration),
		auth:       services.NewAuthService(log, sessions, usernames, engine, notices, tel, config.NoticeDuration),
		supervisor: supervisor,
		barrier:    NewBarrier(log),
		Document:   document,
		Notices:    notices,
		ready:      make(chan struct{}),
		stopped:    make(chan struct{}),
	}, nil
}

// Start launches the workers and the startup tasks, then returns.
// Ready is closed once the session is restored and the transcript loaded.
func (a *App) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	a.cancel = cancel
	a.unsubscribe = a.sessions.OnChange(a.onSessionChange)
	a.barrier.OnFinished(func() { close(a.ready) })

	go func() {
		defer close(a.stopped)
		a.supervisor.Run(ctx)
	}()

	a.barrier.Go(ctx, "session", func(ctx context.Context) error {
		if err := a.sessions.Init(ctx); err != nil {
			return err
		}
		// Init is silent: forward the restored identity by hand.
		a.syncSession()
		a.auth.CheckUsername(ctx)
		return nil
	})
	a.barrier.Go(ctx, "transcript", a.engine.Load)
	a.barrier.Seal()
	a.telemetry.Capture("app_started", nil)
}

// Ready is closed when the startup barrier fires.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Stop cancels the workers and waits for them, bounded by stopTimeout.
func (a *App) Stop() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.cancel != nil {
		a.cancel()
	}
	select {
	case <-a.stopped:
	case <-time.After(stopTimeout):
		a.log.Warn("Workers still running at shutdown")
	}
	if err := a.index.Close(); err != nil {
		a.log.Debug("Unable to close search index", "error", err)
	}
}

func (a *App) onSessionChange(change session.Change) {
	a.log.Debug("Session changed", "reason", change.Reason, "generation", change.Generation)
	a.syncSession()
}

// syncSession re-gates ownership and hands the current token to the realtime channel.
func (a *App) syncSession() {
	a.engine.Regate()
	token := a.sessions.AccessToken()
	if token == "" {
		token = a.config.AnonKey
	}
	a.listener.UpdateToken(token)
}

func (a *App) Send(ctx context.Context, content string) bool {
	return a.chat.Send(ctx, content)
}

func (a *App) Edit(ctx context.Context, shortID, content string) bool {
	return a.chat.Edit(ctx, shortID, content)
}

func (a *App) Delete(ctx context.Context, shortID string) bool {
	return a.chat.Delete(ctx, shortID)
}

func (a *App) Login(ctx context.Context, email, password string) bool {
	return a.auth.Login(ctx, email, password)
}

func (a *App) SendMagicLink(ctx context.Context, email, username string) bool {
	return a.auth.SendMagicLink(ctx, email, username)
}

func (a *App) VerifyOTP(ctx context.Context, email, code string) bool {
	return a.auth.VerifyOTP(ctx, email, code)
}

func (a *App) SignUp(ctx context.Context, email, password, username string) bool {
	return a.auth.SignUp(ctx, email, password, username)
}

func (a *App) Logout(ctx context.Context) {
	a.auth.Logout(ctx)
}

func (a *App) ClaimUsername(ctx context.Context, username string) bool {
	return a.auth.ClaimUsername(ctx, username)
}

func (a *App) SetTelemetry(optIn bool) bool {
	return a.auth.SetTelemetry(optIn)
}

// SetCaptcha stores the proof token used by the next sign-in.
func (a *App) SetCaptcha(token string) {
	a.captcha.Set(token)
}

func (a *App) Search(ctx context.Context, query search.Query) []search.Hit {
	hits, err := a.index.Search(ctx, query)
	if err != nil {
		a.Notices.Notify(services.NoticeFor(err, a.config.NoticeDuration))
		return nil
	}
	a.telemetry.Capture("transcript_searched", map[string]any{"hits": len(hits)})
	return hits
}

// Whoami shows the username when known, the email otherwise.
func (a *App) Whoami() string {
	snapshot := a.sessions.Snapshot()
	if !snapshot.Authenticated {
		return ""
	}
	if name, ok := a.usernames.Cached(snapshot.Identity.ID); ok && name != snapshot.Identity.ID {
		return name
	}
	return snapshot.Identity.Email
}

var _ ui.Actions = (*App)(nil)
