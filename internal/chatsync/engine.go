package chatsync

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"teamchat/internal/localstore"
	"teamchat/internal/models"
)

// Config wires an Engine.
type Config struct {
	UserID   string
	UserName string

	MessageInterval   time.Duration
	DirectoryInterval time.Duration

	// Visibility and Activity feed the poll skip predicate. Both may be nil.
	Visibility Visibility
	Activity   *Activity

	// Push returns the websocket endpoint of a chat. Nil disables push hints.
	Push func(chatID string) (url string, header http.Header)

	// OnDirectory is called after every successful directory load.
	OnDirectory func([]models.Chat)
}

// Engine owns the directory poller and the poller of the selected chat.
type Engine struct {
	cfg   Config
	src   Source
	store *localstore.Store
	dir   *Directory
	skip  SkipFunc

	mu         sync.Mutex
	gen        uint64
	selected   *MessageLog
	cancelChat context.CancelFunc
	cancelDir  context.CancelFunc
	// wg tracks pollers and push listeners, bg the background calls of every
	// log the engine opened.
	wg sync.WaitGroup
	bg sync.WaitGroup
}

func NewEngine(src Source, store *localstore.Store, cfg Config) *Engine {
	if cfg.MessageInterval <= 0 {
		cfg.MessageInterval = MessagePollInterval
	}
	if cfg.DirectoryInterval <= 0 {
		cfg.DirectoryInterval = DirectoryPollInterval
	}
	skip := []SkipFunc{WhenHidden(cfg.Visibility)}
	if cfg.Activity != nil {
		skip = append(skip, cfg.Activity.Skip)
	}
	return &Engine{
		cfg:   cfg,
		src:   src,
		store: store,
		dir:   NewDirectory(cfg.UserID, src, store),
		skip:  AnyOf(skip...),
	}
}

func (e *Engine) Directory() *Directory {
	return e.dir
}

// Start loads the directory once and keeps it fresh until Close or until
// ctx ends. A failed first load is returned but polling still starts.
func (e *Engine) Start(ctx context.Context) error {
	dirCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	if e.cancelDir != nil {
		e.cancelDir()
	}
	e.cancelDir = cancel
	e.wg.Add(1)
	e.mu.Unlock()

	err := e.loadDirectory(dirCtx)

	p := NewPoller("directory", e.cfg.DirectoryInterval, e.loadDirectory, e.skip)
	go func() {
		defer e.wg.Done()
		p.Run(dirCtx)
	}()
	return err
}

func (e *Engine) loadDirectory(ctx context.Context) error {
	chats, err := e.dir.Load(ctx)
	if err != nil {
		return err
	}
	if e.cfg.OnDirectory != nil {
		e.cfg.OnDirectory(chats)
	}
	return nil
}

// Select opens a chat: the previous chat's poller is torn down, the new log
// is loaded and a poller is started for it. The returned log stays valid
// until the next Select, Deselect or Close.
func (e *Engine) Select(ctx context.Context, chatID string, view Viewport) (*MessageLog, error) {
	chatCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	e.teardownLocked()
	e.gen++
	gen := e.gen
	ml := NewMessageLog(chatID, e.cfg.UserID, e.src, e.store, view, LogOptions{
		UserName:   e.cfg.UserName,
		Current:    func() bool { return e.isCurrent(gen) },
		Background: &e.bg,
	})
	e.selected = ml
	e.cancelChat = cancel
	workers := 1
	if e.cfg.Push != nil {
		workers++
	}
	e.wg.Add(workers)
	e.mu.Unlock()

	if err := e.store.SetLastSelectedChat(ctx, chatID); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("remember selected chat")
	}

	err := ml.Load(chatCtx, false)

	p := NewPoller("messages", e.cfg.MessageInterval, func(ctx context.Context) error {
		return ml.Load(ctx, true)
	}, e.skip)
	go func() {
		defer e.wg.Done()
		p.Run(chatCtx)
	}()

	if e.cfg.Push != nil {
		url, header := e.cfg.Push(chatID)
		l := NewPushListener(url, header, func(ev models.ChatEvent) {
			switch ev.Type {
			case models.EventTyping:
				ml.NoteTyping(ev.UserID)
			case models.EventRead:
				// Read markers do not change the message list.
			default:
				p.Trigger()
			}
		})
		go func() {
			defer e.wg.Done()
			l.Run(chatCtx)
		}()
	}
	return ml, err
}

// Resume reopens the chat that was selected last, if any.
func (e *Engine) Resume(ctx context.Context, view Viewport) (*MessageLog, error) {
	chatID, err := e.store.LastSelectedChat(ctx)
	if err != nil {
		return nil, err
	}
	if chatID == "" {
		return nil, ErrNotSelected
	}
	return e.Select(ctx, chatID, view)
}

// Deselect closes the open chat.
func (e *Engine) Deselect(ctx context.Context) {
	e.mu.Lock()
	e.teardownLocked()
	e.gen++
	e.mu.Unlock()
	if err := e.store.SetLastSelectedChat(ctx, ""); err != nil {
		log.Warn().Err(err).Msg("forget selected chat")
	}
}

// Selected returns the open chat, or nil.
func (e *Engine) Selected() *MessageLog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

func (e *Engine) isCurrent(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}

func (e *Engine) teardownLocked() {
	if e.cancelChat != nil {
		e.cancelChat()
		e.cancelChat = nil
	}
	e.selected = nil
}

// Close stops every poller and waits for them and for the background calls
// of every chat opened since the engine was created.
func (e *Engine) Close() {
	e.mu.Lock()
	e.teardownLocked()
	e.gen++
	if e.cancelDir != nil {
		e.cancelDir()
		e.cancelDir = nil
	}
	e.mu.Unlock()

	e.wg.Wait()
	e.bg.Wait()
}
