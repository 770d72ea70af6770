package ghostdriver

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/odvcencio/ghostdriver/pkg/browser"
	"github.com/odvcencio/ghostdriver/pkg/browser/adapters/memory"
	"github.com/odvcencio/ghostdriver/pkg/browser/mocks"
	"github.com/odvcencio/ghostdriver/pkg/bus"
	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
	"github.com/odvcencio/ghostdriver/pkg/session"
)

func TestCreateSessionIssuesUniqueIDs(t *testing.T) {
	m := newTestManager(t, fixtureRuntime())
	ctx := context.Background()

	const n = 20
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.CreateSession(ctx, nil)
			if assert.NoError(t, err) {
				ids <- s.ID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, m.Len())
}

func TestCreateSessionMergesCapabilities(t *testing.T) {
	m := newTestManager(t, fixtureRuntime())

	s, err := m.CreateSession(context.Background(), browser.Capabilities{"javascriptEnabled": false, "custom": "x"})
	require.NoError(t, err)

	caps := s.Capabilities()
	assert.Equal(t, "memory", caps["browserName"])
	assert.Equal(t, false, caps["javascriptEnabled"])
	assert.Equal(t, "x", caps["custom"])

	caps["custom"] = "mutated"
	assert.Equal(t, "x", s.Capabilities()["custom"])
	assert.Equal(t, session.WindowHandle(s.ID()), s.WindowHandle())
}

func TestCreateSessionBackendFailure(t *testing.T) {
	rt := memory.NewRuntime(memory.WithNewSessionError(errors.New("out of browsers")))
	m := newTestManager(t, rt)

	s, err := m.CreateSession(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, s)

	perr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.StatusSessionNotCreated, perr.Status)
	assert.Equal(t, 500, perr.HTTPStatus)
	assert.Contains(t, perr.Error(), "out of browsers")
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Sessions())
}

func TestCreateSessionRetriesIDCollision(t *testing.T) {
	ids := []string{"dup", "dup", "", "fresh"}
	var mu sync.Mutex
	gen := session.IDGeneratorFunc(func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		id := ids[0]
		ids = ids[1:]
		return id, nil
	})
	m := newTestManager(t, fixtureRuntime(), func(c *ManagerConfig) { c.IDs = gen })

	first, err := m.CreateSession(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "dup", first.ID())

	second, err := m.CreateSession(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.ID())
}

func TestCreateSessionIDGeneratorFailure(t *testing.T) {
	gen := session.IDGeneratorFunc(func() (string, error) { return "", errors.New("no entropy") })
	m := newTestManager(t, fixtureRuntime(), func(c *ManagerConfig) { c.IDs = gen })

	_, err := m.CreateSession(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entropy")
}

func TestMaxSessions(t *testing.T) {
	m := newTestManager(t, fixtureRuntime(), func(c *ManagerConfig) { c.MaxSessions = 2 })
	ctx := context.Background()

	a, err := m.CreateSession(ctx, nil)
	require.NoError(t, err)
	_, err = m.CreateSession(ctx, nil)
	require.NoError(t, err)
	assert.False(t, m.Accepting())

	_, err = m.CreateSession(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum number of sessions")

	require.NoError(t, m.DeleteSession(ctx, a.ID()))
	assert.True(t, m.Accepting())
	_, err = m.CreateSession(ctx, nil)
	require.NoError(t, err)
}

func TestSessionsOrderedByCreation(t *testing.T) {
	m := newTestManager(t, fixtureRuntime())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(-tick) * time.Minute)
	}

	var want []string
	for i := 0; i < 3; i++ {
		s, err := m.CreateSession(context.Background(), nil)
		require.NoError(t, err)
		want = append([]string{s.ID()}, want...)
	}

	var got []string
	for _, s := range m.Sessions() {
		got = append(got, s.ID())
	}
	assert.Equal(t, want, got)
}

func TestSessionIsolation(t *testing.T) {
	m := newTestManager(t, fixtureRuntime())
	ctx := context.Background()

	a, err := m.CreateSession(ctx, browser.Capabilities{"tag": "a"})
	require.NoError(t, err)
	b, err := m.CreateSession(ctx, browser.Capabilities{"tag": "b"})
	require.NoError(t, err)

	require.NoError(t, a.Do(ctx, 0, func(ctx context.Context, be browser.Backend) error {
		return be.Navigate(ctx, aboutURL)
	}))

	var titleB string
	require.NoError(t, b.Do(ctx, 0, func(ctx context.Context, be browser.Backend) error {
		var err error
		titleB, err = be.Title(ctx)
		return err
	}))
	assert.Empty(t, titleB)

	require.NoError(t, m.DeleteSession(ctx, a.ID()))
	_, ok := m.Session(b.ID())
	assert.True(t, ok)
	assert.Equal(t, "b", b.Capabilities()["tag"])
}

func TestDeleteSessionIdempotent(t *testing.T) {
	rt := fixtureRuntime()
	m := newTestManager(t, rt)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, nil)
	require.NoError(t, err)
	_, ok := m.SessionRequestHandler(s.ID())
	require.True(t, ok)

	require.NoError(t, m.DeleteSession(ctx, s.ID()))
	require.NoError(t, m.DeleteSession(ctx, s.ID()))
	require.NoError(t, m.DeleteSession(ctx, "never-existed"))

	_, ok = m.Session(s.ID())
	assert.False(t, ok)
	_, ok = m.SessionRequestHandler(s.ID())
	assert.False(t, ok)
	assert.True(t, s.Closed())
	assert.Zero(t, rt.Sessions())
}

func TestSessionRequestHandlerCached(t *testing.T) {
	m := newTestManager(t, fixtureRuntime())
	s, err := m.CreateSession(context.Background(), nil)
	require.NoError(t, err)

	h1, ok := m.SessionRequestHandler(s.ID())
	require.True(t, ok)
	h2, ok := m.SessionRequestHandler(s.ID())
	require.True(t, ok)
	assert.Same(t, h1, h2)

	_, ok = m.SessionRequestHandler("missing")
	assert.False(t, ok)
}

func TestDeleteWaitsForInFlightCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	rt := mocks.NewMockRuntime(ctrl)
	rt.EXPECT().NewSession(gomock.Any(), gomock.Any()).Return(backend, nil)

	started := make(chan struct{})
	finish := make(chan struct{})
	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}

	backend.EXPECT().Title(gomock.Any()).DoAndReturn(func(ctx context.Context) (string, error) {
		close(started)
		<-finish
		record("command")
		return "t", nil
	})
	backend.EXPECT().Close().DoAndReturn(func() error {
		record("close")
		return nil
	})

	m := newTestManager(t, rt)
	ctx := context.Background()
	s, err := m.CreateSession(ctx, nil)
	require.NoError(t, err)

	cmdDone := make(chan error, 1)
	go func() {
		cmdDone <- s.Do(ctx, 0, func(ctx context.Context, b browser.Backend) error {
			_, err := b.Title(ctx)
			return err
		})
	}()
	<-started

	delDone := make(chan error, 1)
	go func() { delDone <- m.DeleteSession(ctx, s.ID()) }()

	select {
	case <-delDone:
		t.Fatal("delete finished while a command was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(finish)

	require.NoError(t, <-cmdDone)
	require.NoError(t, <-delDone)
	assert.Equal(t, []string{"command", "close"}, order)

	err = s.Do(ctx, 0, func(context.Context, browser.Backend) error { return nil })
	assert.ErrorIs(t, err, errSessionGone)
}

func TestCommandsOnOneSessionRunInArrivalOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	rt := mocks.NewMockRuntime(ctrl)
	rt.EXPECT().NewSession(gomock.Any(), gomock.Any()).Return(backend, nil)
	backend.EXPECT().Close().Return(nil)

	started := make(chan struct{})
	finish := make(chan struct{})
	var (
		mu      sync.Mutex
		order   []string
		active  atomic.Int32
		overlap atomic.Bool
	)
	enter := func(name string) {
		if active.Add(1) > 1 {
			overlap.Store(true)
		}
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	backend.EXPECT().Title(gomock.Any()).DoAndReturn(func(context.Context) (string, error) {
		enter("title")
		defer active.Add(-1)
		close(started)
		<-finish
		return "t", nil
	})
	backend.EXPECT().CurrentURL(gomock.Any()).DoAndReturn(func(context.Context) (string, error) {
		enter("url")
		defer active.Add(-1)
		time.Sleep(10 * time.Millisecond)
		return "u", nil
	})
	backend.EXPECT().Source(gomock.Any()).DoAndReturn(func(context.Context) (string, error) {
		enter("source")
		defer active.Add(-1)
		return "s", nil
	})

	m := newTestManager(t, rt)
	ctx := context.Background()
	s, err := m.CreateSession(ctx, nil)
	require.NoError(t, err)

	run := func(fn func(context.Context, browser.Backend) error) <-chan error {
		done := make(chan error, 1)
		go func() { done <- s.Do(ctx, 0, fn) }()
		return done
	}

	first := run(func(ctx context.Context, b browser.Backend) error {
		_, err := b.Title(ctx)
		return err
	})
	<-started
	second := run(func(ctx context.Context, b browser.Backend) error {
		_, err := b.CurrentURL(ctx)
		return err
	})
	time.Sleep(30 * time.Millisecond)
	third := run(func(ctx context.Context, b browser.Backend) error {
		_, err := b.Source(ctx)
		return err
	})
	time.Sleep(30 * time.Millisecond)

	select {
	case <-second:
		t.Fatal("queued command ran while another held the session")
	default:
	}
	close(finish)

	require.NoError(t, <-first)
	require.NoError(t, <-second)
	require.NoError(t, <-third)
	assert.False(t, overlap.Load(), "commands on one session overlapped")
	assert.Equal(t, []string{"title", "url", "source"}, order)
}

func TestCommandsOnDifferentSessionsRunInParallel(t *testing.T) {
	ctrl := gomock.NewController(t)
	blocked := mocks.NewMockBackend(ctrl)
	free := mocks.NewMockBackend(ctrl)
	rt := mocks.NewMockRuntime(ctrl)
	gomock.InOrder(
		rt.EXPECT().NewSession(gomock.Any(), gomock.Any()).Return(blocked, nil),
		rt.EXPECT().NewSession(gomock.Any(), gomock.Any()).Return(free, nil),
	)
	blocked.EXPECT().Close().Return(nil)
	free.EXPECT().Close().Return(nil)

	started := make(chan struct{})
	finish := make(chan struct{})
	blocked.EXPECT().Title(gomock.Any()).DoAndReturn(func(context.Context) (string, error) {
		close(started)
		<-finish
		return "a", nil
	})
	free.EXPECT().Title(gomock.Any()).Return("b", nil)

	m := newTestManager(t, rt)
	ctx := context.Background()
	a, err := m.CreateSession(ctx, nil)
	require.NoError(t, err)
	b, err := m.CreateSession(ctx, nil)
	require.NoError(t, err)

	aDone := make(chan error, 1)
	go func() {
		aDone <- a.Do(ctx, 0, func(ctx context.Context, be browser.Backend) error {
			_, err := be.Title(ctx)
			return err
		})
	}()
	<-started

	var title string
	err = b.Do(ctx, 0, func(ctx context.Context, be browser.Backend) error {
		var err error
		title, err = be.Title(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "b", title)

	select {
	case <-aDone:
		t.Fatal("blocked command finished early")
	default:
	}
	close(finish)
	require.NoError(t, <-aDone)
}

func TestCloseDestroysAllSessions(t *testing.T) {
	rt := fixtureRuntime()
	m := newTestManager(t, rt)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := m.CreateSession(ctx, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 5, rt.Sessions())

	require.NoError(t, m.Close(ctx))
	assert.Zero(t, m.Len())
	assert.Zero(t, rt.Sessions())
	assert.False(t, m.Accepting())

	_, err := m.CreateSession(ctx, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBackendFailure))
}

func TestLifecycleEventsPublished(t *testing.T) {
	mb := bus.NewMemoryBus()
	t.Cleanup(func() { _ = mb.Close() })

	events := make(chan bus.SessionEvent, 4)
	sub, err := mb.Subscribe(context.Background(), "ghostdriver.session.>", func(msg *bus.Message) {
		var evt bus.SessionEvent
		if json.Unmarshal(msg.Data, &evt) == nil {
			events <- evt
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })

	m := newTestManager(t, fixtureRuntime(), func(c *ManagerConfig) {
		c.Events = bus.NewEventPublisher(mb, "ghostdriver")
	})
	ctx := context.Background()
	s, err := m.CreateSession(ctx, browser.Capabilities{"tag": "x"})
	require.NoError(t, err)
	require.NoError(t, m.DeleteSession(ctx, s.ID()))

	next := func() bus.SessionEvent {
		select {
		case evt := <-events:
			return evt
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
			return bus.SessionEvent{}
		}
	}
	created := next()
	assert.Equal(t, bus.EventSessionCreated, created.Type)
	assert.Equal(t, s.ID(), created.SessionID)
	assert.Equal(t, "x", created.Capabilities["tag"])

	deleted := next()
	assert.Equal(t, bus.EventSessionDeleted, deleted.Type)
	assert.Equal(t, ReasonClient, deleted.Reason)
}
