package sessionclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrStoreClosed is returned by Dispatch after Close.
	ErrStoreClosed = errors.New("session.store.closed")
	// ErrNilCommand indicates a Dispatch without a command.
	ErrNilCommand = errors.New("session.store.nil_command")

	errRemoteRequired  = errors.New("session.store.remote_required")
	errStorageRequired = errors.New("session.store.storage_required")
)

// StoreConfig describes the collaborators of a Store.
type StoreConfig struct {
	Remote  Remote
	Storage Storage
	Logger  *zap.Logger
}

type dispatched struct {
	command   Command
	completed chan struct{}
}

// Store is the single owner of the client's Snapshot. Commands are reduced one at a time
// in dispatch order by a driver goroutine; remote calls run beside it and feed their
// outcome back as another command, so whichever completion is reduced last wins.
type Store struct {
	remote  Remote
	storage Storage
	logger  *zap.Logger

	commands    chan dispatched
	completions chan dispatched
	quit        chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	inflight    sync.WaitGroup

	remoteContext context.Context
	cancelRemote  context.CancelFunc

	mutex    sync.RWMutex
	snapshot Snapshot
}

// NewStore rehydrates the session from storage and starts the driver.
// Unreadable or corrupt persisted data is logged and the store starts anonymous.
func NewStore(configuration StoreConfig) (*Store, error) {
	if configuration.Remote == nil {
		return nil, errRemoteRequired
	}
	if configuration.Storage == nil {
		return nil, errStorageRequired
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	remoteContext, cancelRemote := context.WithCancel(context.Background())
	store := &Store{
		remote:        configuration.Remote,
		storage:       configuration.Storage,
		logger:        logger,
		commands:      make(chan dispatched),
		completions:   make(chan dispatched),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		remoteContext: remoteContext,
		cancelRemote:  cancelRemote,
	}
	store.snapshot = store.rehydrate(remoteContext)
	go store.run()
	return store, nil
}

// Snapshot returns the current state. The returned value shares nothing with the store.
func (store *Store) Snapshot() Snapshot {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	current := store.snapshot
	if current.User != nil {
		copied := *current.User
		current.User = &copied
	}
	return current
}

// Dispatch submits command and waits until it has been reduced. For Login and Register
// the wait extends to the reduction of the remote outcome.
func (store *Store) Dispatch(ctx context.Context, command Command) error {
	if command == nil {
		return ErrNilCommand
	}
	envelope := dispatched{command: command, completed: make(chan struct{})}
	select {
	case store.commands <- envelope:
	case <-store.done:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-envelope.completed:
		return nil
	case <-store.done:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the driver and cancels in-flight remote calls.
func (store *Store) Close() {
	store.closeOnce.Do(func() {
		close(store.quit)
		store.cancelRemote()
	})
	<-store.done
	store.inflight.Wait()
}

func (store *Store) run() {
	defer close(store.done)
	for {
		select {
		case <-store.quit:
			return
		case envelope := <-store.commands:
			store.apply(envelope)
		case envelope := <-store.completions:
			store.apply(envelope)
		}
	}
}

func (store *Store) apply(envelope dispatched) {
	store.mutex.Lock()
	next, effects := Reduce(store.snapshot, envelope.command)
	store.snapshot = next
	store.mutex.Unlock()

	store.logger.Debug("session command reduced",
		zap.String("command", envelope.command.commandName()),
		zap.String("status", string(next.Status())))

	awaitingRemote := false
	for _, effect := range effects {
		switch typed := effect.(type) {
		case Persist:
			store.persist(typed.Snapshot)
		case RemoteLogin:
			awaitingRemote = true
			store.launch(envelope.completed, func(ctx context.Context) (AuthResponse, error) {
				return store.remote.Login(ctx, typed.Identifier, typed.Password)
			}, MessageLoginFailed, "session.remote.login_failed")
		case RemoteRegister:
			awaitingRemote = true
			store.launch(envelope.completed, func(ctx context.Context) (AuthResponse, error) {
				return store.remote.Register(ctx, typed.Request)
			}, MessageRegisterFailed, "session.remote.register_failed")
		}
	}
	if !awaitingRemote {
		close(envelope.completed)
	}
}

func (store *Store) launch(completed chan struct{}, call func(context.Context) (AuthResponse, error), failureMessage string, failureCode string) {
	store.inflight.Add(1)
	go func() {
		defer store.inflight.Done()
		var outcome Command
		response, err := call(store.remoteContext)
		if err != nil {
			store.logger.Warn("session remote call failed",
				zap.String("code", failureCode),
				zap.Error(err))
			outcome = authFailed{message: failureMessage}
		} else {
			outcome = authSucceeded{response: response}
		}
		select {
		case store.completions <- dispatched{command: outcome, completed: completed}:
		case <-store.quit:
		}
	}()
}

func (store *Store) persist(snapshot Snapshot) {
	encoded, encodeErr := json.Marshal(snapshot.persisted())
	if encodeErr != nil {
		store.logger.Error("session persist failed",
			zap.String("code", "session.persist.encode_failed"),
			zap.Error(encodeErr))
		return
	}
	if setErr := store.storage.Set(store.remoteContext, StorageKeyAuth, encoded); setErr != nil {
		store.logger.Warn("session persist failed",
			zap.String("code", "session.persist.failed"),
			zap.Error(setErr))
	}
}

func (store *Store) rehydrate(ctx context.Context) Snapshot {
	data, found, getErr := store.storage.Get(ctx, StorageKeyAuth)
	if getErr != nil {
		store.logger.Warn("session rehydrate failed",
			zap.String("code", "session.rehydrate.read_failed"),
			zap.Error(getErr))
		return Snapshot{}
	}
	if !found || len(data) == 0 {
		return Snapshot{}
	}
	var session persistedSession
	if decodeErr := json.Unmarshal(data, &session); decodeErr != nil {
		store.logger.Warn("session rehydrate failed",
			zap.String("code", "session.rehydrate.corrupt"),
			zap.Error(decodeErr))
		return Snapshot{}
	}
	return session.snapshot()
}
