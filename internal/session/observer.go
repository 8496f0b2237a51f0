package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// TopicTransitions carries one message per observed session change.
const TopicTransitions = "session.transitions"

const defaultPoll = 2 * time.Second

// Observer keeps an in-memory snapshot of the session file and publishes a
// message on every transition. The file is watched with fsnotify; a slow
// poll covers writers and filesystems that do not emit events.
type Observer struct {
	path   string
	logger *zap.Logger
	bus    *gochannel.GoChannel
	poll   time.Duration

	mu      sync.RWMutex
	current Session
	token   string
	running bool

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewObserver(path string, logger *zap.Logger) *Observer {
	o := &Observer{
		path:   path,
		logger: logger,
		bus:    gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}),
		poll:   defaultPoll,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	o.current, o.token = o.load()
	return o
}

// Current returns the latest snapshot.
func (o *Observer) Current() Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

// Token returns the live bearer token, empty unless verified. Its signature
// matches api.TokenSource so the observer can feed the profile client.
func (o *Observer) Token() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.token
}

// Start begins watching the session file. Non-blocking; Close stops it.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = true
	o.mu.Unlock()

	// Watch the directory, not the file: the file may not exist yet and
	// most writers replace it wholesale.
	dir := filepath.Dir(o.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		o.setRunning(false)
		return fmt.Errorf("session: mkdir %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		o.setRunning(false)
		return fmt.Errorf("session: watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		o.setRunning(false)
		return fmt.Errorf("session: watch %s: %w", dir, err)
	}
	o.watcher = watcher

	go o.run(ctx)
	return nil
}

func (o *Observer) setRunning(v bool) {
	o.mu.Lock()
	o.running = v
	o.mu.Unlock()
}

func (o *Observer) run(ctx context.Context) {
	defer close(o.doneCh)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case event, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			if event.Name != o.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			o.refresh()
		case err, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
			o.logger.Warn("session watcher error", zap.Error(err))
		case <-ticker.C:
			o.refresh()
		}
	}
}

// refresh re-reads the file and publishes when the snapshot changed.
func (o *Observer) refresh() {
	next, token := o.load()

	o.mu.Lock()
	prev := o.current
	changed := next != prev
	o.current = next
	o.token = token
	o.mu.Unlock()

	if !changed {
		return
	}

	o.logger.Info("session transition",
		zap.String("from", string(prev.State)),
		zap.String("to", string(next.State)),
	)

	payload, err := json.Marshal(next)
	if err != nil {
		o.logger.Error("encode session transition", zap.Error(err))
		return
	}
	if err := o.bus.Publish(TopicTransitions, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		o.logger.Error("publish session transition", zap.Error(err))
	}
}

func (o *Observer) load() (Session, string) {
	st, err := readState(o.path)
	if err != nil {
		o.logger.Warn("session file unreadable", zap.Error(err))
		return Session{State: StateAnonymous}, ""
	}
	return snapshot(st, o.logger)
}

// Subscribe returns a channel receiving every transition published after
// the call. It closes when ctx is done or the observer is closed.
func (o *Observer) Subscribe(ctx context.Context) (<-chan Session, error) {
	msgs, err := o.bus.Subscribe(ctx, TopicTransitions)
	if err != nil {
		return nil, err
	}

	out := make(chan Session, 1)
	go func() {
		defer close(out)
		for msg := range msgs {
			var s Session
			if err := json.Unmarshal(msg.Payload, &s); err != nil {
				o.logger.Error("decode session transition", zap.Error(err))
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close stops the watcher and the bus and waits for the loop to exit.
func (o *Observer) Close() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return o.bus.Close()
	}
	o.running = false
	o.mu.Unlock()

	close(o.stopCh)
	<-o.doneCh

	if err := o.watcher.Close(); err != nil {
		o.logger.Warn("close session watcher", zap.Error(err))
	}
	return o.bus.Close()
}
