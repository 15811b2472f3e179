// Package modal turns a modal dialog into a blocking decision point.
package modal

import (
	"context"
	"sync"

	"github.com/specialistvlad/launcher/internal/store"
)

// Props are the options handed to the modal. PreventClose makes it
// blocking: the UI offers no dismiss control until the modal itself
// finishes.
type Props struct {
	PreventClose bool
	Values       map[string]any
}

// Gate opens a modal of kind and waits until no modal of kind remains in
// the open list. Only a transition from containing kind to not containing
// it resolves the wait, so closing a modal of another kind never does, even
// when that close lands before the gate's own open. Gate does not time out;
// ctx bounds the wait.
func Gate(ctx context.Context, st *store.Store, kind string, props Props) error {
	resolved := make(chan struct{})
	var once sync.Once

	unsubscribe := st.Subscribe(func(prev, next store.State) {
		if !prev.HasModal(kind) || next.HasModal(kind) {
			return
		}
		once.Do(func() {
			close(resolved)
		})
	})
	defer unsubscribe()

	st.Dispatch(store.OpenModal{Kind: kind, Props: props.Values, Blocking: props.PreventClose})

	select {
	case <-resolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
