package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ModalActions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		actions []Action
		want    []string
	}{
		{
			name:    "open keeps order",
			actions: []Action{OpenModal{Kind: "A"}, OpenModal{Kind: "B"}},
			want:    []string{"A", "B"},
		},
		{
			name:    "close pops the top",
			actions: []Action{OpenModal{Kind: "A"}, OpenModal{Kind: "B"}, CloseModal{}},
			want:    []string{"A"},
		},
		{
			name:    "close on empty list is a no-op",
			actions: []Action{CloseModal{}},
			want:    []string{},
		},
		{
			name:    "close kind removes the latest of that kind",
			actions: []Action{OpenModal{Kind: "A"}, OpenModal{Kind: "B"}, OpenModal{Kind: "A"}, CloseModalKind{Kind: "A"}},
			want:    []string{"A", "B"},
		},
		{
			name:    "close kind without a match",
			actions: []Action{OpenModal{Kind: "A"}, CloseModalKind{Kind: "Z"}},
			want:    []string{"A"},
		},
		{
			name:    "close all",
			actions: []Action{OpenModal{Kind: "A"}, OpenModal{Kind: "B"}, CloseAllModals{}},
			want:    []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := New()
			for _, a := range tc.actions {
				s.Dispatch(a)
			}
			kinds := []string{}
			for _, m := range s.State().Modals {
				kinds = append(kinds, m.Kind)
			}
			assert.Equal(t, tc.want, kinds)
		})
	}
}

func TestStore_SnapshotsAreNotShared(t *testing.T) {
	t.Parallel()
	s := New()
	s.Dispatch(OpenModal{Kind: "A"})
	before := s.State()

	s.Dispatch(OpenModal{Kind: "B"})
	s.Dispatch(CloseModalKind{Kind: "A"})

	require.Len(t, before.Modals, 1)
	assert.Equal(t, "A", before.Modals[0].Kind)
}

func TestStore_PhasesOnlyMoveForward(t *testing.T) {
	t.Parallel()
	s := New()

	s.Dispatch(SetPhase{Phase: PhaseSessionBootstrap})
	s.Dispatch(SetPhase{Phase: PhaseLockCheck})
	assert.Equal(t, PhaseSessionBootstrap, s.State().Phase)

	s.Dispatch(SetPhase{Phase: PhaseReady})
	s.Dispatch(SetPhase{Phase: PhaseAborted})
	assert.Equal(t, PhaseReady, s.State().Phase)

	aborted := New()
	aborted.Dispatch(SetPhase{Phase: PhaseExtracting})
	aborted.Dispatch(SetPhase{Phase: PhaseAborted})
	aborted.Dispatch(SetPhase{Phase: PhaseReady})
	assert.Equal(t, PhaseAborted, aborted.State().Phase)
}

func TestStore_SubscribersSeeEveryTransitionInOrder(t *testing.T) {
	t.Parallel()
	s := New()

	var mu sync.Mutex
	var seen []int
	unsubscribe := s.Subscribe(func(prev, next State) {
		mu.Lock()
		seen = append(seen, len(next.Warnings))
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dispatch(AddWarning{Message: "w"})
		}()
	}
	wg.Wait()
	unsubscribe()
	unsubscribe()
	s.Dispatch(AddWarning{Message: "after"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 50)
	for i, n := range seen {
		assert.Equal(t, i+1, n)
	}
}

func TestModalsChanged(t *testing.T) {
	t.Parallel()
	a := State{Modals: []Modal{{Kind: "A"}}}
	assert.False(t, ModalsChanged(a, State{Modals: []Modal{{Kind: "A"}}}))
	assert.True(t, ModalsChanged(a, State{}))
	assert.True(t, ModalsChanged(a, State{Modals: []Modal{{Kind: "B"}}}))
}

func TestStore_BatchIsOneTransition(t *testing.T) {
	t.Parallel()
	st := New()
	st.Dispatch(SetPhase{Phase: PhaseExtracting})

	var seen []State
	unsubscribe := st.Subscribe(func(_, next State) { seen = append(seen, next) })
	defer unsubscribe()

	st.Dispatch(Batch{
		SetPhase{Phase: PhaseSessionBootstrap},
		SetLoginChecking{Checking: true},
	})

	require.Len(t, seen, 1)
	assert.Equal(t, PhaseSessionBootstrap, seen[0].Phase)
	assert.True(t, seen[0].LoginChecking)
}
