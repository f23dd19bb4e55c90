package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/fleet-bracket/internal/catalog"
	"github.com/DoyleJ11/fleet-bracket/internal/engine"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Cmd engine.Command
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// settled is posted by the settle timer. seq identifies the arming it
// belongs to; anything older is stale.
type settled struct{ seq int }

func (settled) isLobbyMsg() {}

// loaded carries a finished catalog attempt back into the loop.
type loaded struct {
	gen   int
	items []engine.Item
	err   error
}

func (loaded) isLobbyMsg() {}

// Loader fetches the catalog. *catalog.Loader is the production one.
type Loader interface {
	Load(ctx context.Context) ([]engine.Item, error)
}

type Options struct {
	Loader Loader
	Order  engine.Shuffler

	// SelectSettle and PickSettle hold the decision lock after a smash/pass
	// or a bracket pick. Zero settles at once.
	SelectSettle time.Duration
	PickSettle   time.Duration

	Logger *zap.Logger
}

// Snapshot is what clients receive after every accepted command. Events are
// the ones produced by that command.
type Snapshot struct {
	Version int
	Session engine.Session
	Events  []engine.Event
}

type View struct {
	Version    int
	NumClients int
	Session    engine.Session
}

// Lobby owns one session. All state changes happen on its loop goroutine.
type Lobby struct {
	inbox   chan Msg
	session engine.Session
	version int
	clients map[string]chan Snapshot
	opts    Options
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	timer    *time.Timer
	timerSeq int
}

func NewLobby(parent context.Context, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.Order == nil {
		opts.Order = engine.NewShuffler(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64), // Small buffer
		session: engine.NewSession(),
		clients: make(map[string]chan Snapshot),
		opts:    opts,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if st, ok := l.session.State.(engine.Loading); ok {
		l.startLoad(st.Generation)
	}
	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = msg.Outbox
				select {
				case msg.Outbox <- Snapshot{Version: l.version, Session: l.session}:
				default:
					close(msg.Outbox)
					delete(l.clients, msg.ClientID)
				}

			case Leave:
				delete(l.clients, msg.ClientID)

			case FromClient:
				l.apply(msg.Cmd)

			case settled:
				if msg.seq != l.timerSeq || l.timer == nil {
					break
				}
				l.timer = nil
				l.apply(engine.Command{Type: engine.CmdSettle})

			case loaded:
				l.finishLoad(msg)

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Session:    l.session,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) apply(cmd engine.Command) {
	events, next, err := engine.Apply(l.session, cmd, l.opts.Order)
	if err != nil {
		if cmd.Type == engine.CmdSettle {
			// a refused settle still releases the lock
			l.session = next
		}
		l.logger.Debug("command dropped",
			zap.String("cmd", string(cmd.Type)),
			zap.String("phase", l.session.Phase().String()),
			zap.Error(err))
		return
	}
	l.session = next
	if !l.session.Pending() {
		l.disarm()
	}
	if len(events) == 0 {
		return
	}
	l.version++
	l.broadcast(Snapshot{Version: l.version, Session: l.session, Events: events})

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtDecisionPending:
			l.arm(l.opts.SelectSettle)
		case engine.EvtPickPending:
			l.arm(l.opts.PickSettle)
		case engine.EvtLoadStarted:
			l.startLoad(ev.Generation)
		case engine.EvtChampionCrowned:
			l.logger.Info("champion crowned",
				zap.String("ship", ev.ItemID),
				zap.Int("rounds", ev.RoundNumber))
		}
	}
}

// arm holds the decision lock for d, then posts a settle.
func (l *Lobby) arm(d time.Duration) {
	l.disarm()
	if d <= 0 {
		l.apply(engine.Command{Type: engine.CmdSettle})
		return
	}
	seq := l.timerSeq
	l.timer = time.AfterFunc(d, func() {
		select {
		case l.inbox <- settled{seq: seq}:
		case <-l.ctx.Done():
		}
	})
}

func (l *Lobby) disarm() {
	if l.timer == nil {
		return
	}
	l.timer.Stop()
	l.timer = nil
	l.timerSeq++
}

func (l *Lobby) startLoad(gen int) {
	loader := l.opts.Loader
	l.logger.Info("loading catalog", zap.Int("generation", gen))
	go func() {
		var res loaded
		if loader == nil {
			res = loaded{gen: gen, err: errors.New("no catalog loader configured")}
		} else {
			items, err := loader.Load(l.ctx)
			res = loaded{gen: gen, items: items, err: err}
		}
		select {
		case l.inbox <- res:
		case <-l.ctx.Done():
		}
	}()
}

func (l *Lobby) finishLoad(res loaded) {
	if l.ctx.Err() != nil {
		return
	}
	if res.err != nil {
		l.logger.Warn("catalog unavailable", zap.Int("generation", res.gen), zap.Error(res.err))
		l.apply(engine.Command{Type: engine.CmdCatalogFailed, Generation: res.gen, Failures: catalog.Reasons(res.err)})
		return
	}
	if len(res.items) == 0 {
		l.apply(engine.Command{Type: engine.CmdCatalogFailed, Generation: res.gen, Failures: []string{"catalog is empty"}})
		return
	}
	l.apply(engine.Command{Type: engine.CmdCatalogLoaded, Generation: res.gen, Items: res.items})
}

func (l *Lobby) shutdown() {
	l.disarm()
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Send delivers m unless the lobby has stopped or ctx ends first.
func (l *Lobby) Send(ctx context.Context, m Msg) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State asks the loop for the current view.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.Send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
