package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/fieldops/internal/dto"
)

func TestNewStartsLoading(t *testing.T) {
	s := New()
	st := s.Snapshot()
	assert.True(t, st.Loading)
	assert.Nil(t, st.User)
	assert.False(t, st.Authenticated())
}

func TestInitSuccessSetsUser(t *testing.T) {
	s := New()
	calls := 0
	s.Init(context.Background(), func(context.Context) (dto.User, error) {
		calls++
		return dto.User{ID: "u1", Username: "ravi"}, nil
	})
	s.Init(context.Background(), func(context.Context) (dto.User, error) {
		calls++
		return dto.User{}, nil
	})

	st := s.Snapshot()
	assert.Equal(t, 1, calls)
	assert.False(t, st.Loading)
	require.NotNil(t, st.User)
	assert.Equal(t, "u1", st.User.ID)
	assert.True(t, st.Authenticated())
}

func TestInitFailureSettlesWithoutUser(t *testing.T) {
	s := New()
	s.Init(context.Background(), func(context.Context) (dto.User, error) {
		return dto.User{}, errors.New("please login to access this resource")
	})
	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.Nil(t, st.User)
}

func TestInitTimeoutSettlesWithoutUser(t *testing.T) {
	s := New(WithProfileTimeout(20 * time.Millisecond))
	s.Init(context.Background(), func(ctx context.Context) (dto.User, error) {
		<-ctx.Done()
		return dto.User{}, ctx.Err()
	})
	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.Nil(t, st.User)
}

func TestMinLoadingHoldsLoadingState(t *testing.T) {
	s := New(WithMinLoading(50 * time.Millisecond))
	start := time.Now()
	s.Init(context.Background(), func(context.Context) (dto.User, error) {
		return dto.User{ID: "u1"}, nil
	})
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.False(t, s.Snapshot().Loading)
}

func TestSetUserDuringInitWins(t *testing.T) {
	s := New()
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		s.Init(context.Background(), func(context.Context) (dto.User, error) {
			<-release
			return dto.User{ID: "stale"}, nil
		})
		close(done)
	}()

	s.SetUser(&dto.User{ID: "fresh"})
	close(release)
	<-done

	require.NotNil(t, s.User())
	assert.Equal(t, "fresh", s.User().ID)
}

func TestLogoutClearsBeforeNetworkCall(t *testing.T) {
	s := New()
	s.Init(context.Background(), func(context.Context) (dto.User, error) {
		return dto.User{ID: "u1"}, nil
	})

	var seenDuringCall *dto.User
	err := s.Logout(context.Background(), func(context.Context) error {
		seenDuringCall = s.User()
		return errors.New("Unknown error occurred")
	})
	assert.Error(t, err)
	assert.Nil(t, seenDuringCall)
	assert.Nil(t, s.User())
	assert.False(t, s.Snapshot().Loading)
}

func TestLogoutWhilePending(t *testing.T) {
	s := New()
	s.SetUser(&dto.User{ID: "u1"})
	s.Init(context.Background(), func(context.Context) (dto.User, error) { return dto.User{ID: "u1"}, nil })

	started := make(chan struct{})
	finish := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Logout(context.Background(), func(context.Context) error {
			close(started)
			<-finish
			return nil
		})
	}()

	<-started
	assert.Nil(t, s.User())
	close(finish)
	wg.Wait()
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s := New()
	var got []State
	unsubscribe := s.Subscribe(func(st State) { got = append(got, st) })

	s.Init(context.Background(), func(context.Context) (dto.User, error) {
		return dto.User{}, errors.New("offline")
	})
	s.SetUser(&dto.User{ID: "u1"})
	s.SetUser(&dto.User{ID: "u1"})
	unsubscribe()
	s.SetUser(nil)

	require.Len(t, got, 3)
	assert.False(t, got[0].Loading)
	assert.Nil(t, got[0].User)
	assert.Equal(t, "u1", got[1].User.ID)
}

func TestSetUserCopiesValue(t *testing.T) {
	s := New()
	u := dto.User{ID: "u1"}
	s.SetUser(&u)
	u.ID = "changed"
	assert.Equal(t, "u1", s.User().ID)
}
