package commands

import (
	"context"
	"fmt"
	"strings"

	"taskmate/internal/store"
)

// minPrefixLen is the shortest id prefix resolved against the task list.
const minPrefixLen = 4

// resolveTaskRef maps a reference to a task id. An exact id wins; otherwise
// a prefix of at least minPrefixLen characters matching exactly one task
// resolves to it. Anything else is returned unchanged so the backend can
// answer NotFound for it.
func resolveTaskRef(ctx context.Context, r store.Remote, ref string) (string, error) {
	if len(ref) < minPrefixLen {
		return ref, nil
	}

	list := store.NewList()
	defer list.Close()
	if err := list.Refresh(ctx, r); err != nil {
		return "", err
	}

	var matches []string
	for _, t := range list.All() {
		if t.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}

	switch len(matches) {
	case 0:
		return ref, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d tasks", ErrAmbiguous, ref, len(matches))
	}
}

// openTask resolves ref and returns a detail view for the task.
func openTask(ctx context.Context, env *Env, ref string) (*store.Detail, store.Remote, error) {
	r, err := env.remote(ctx)
	if err != nil {
		return nil, store.Remote{}, err
	}
	id, err := resolveTaskRef(ctx, r, ref)
	if err != nil {
		return nil, store.Remote{}, err
	}
	return store.NewDetail(id), r, nil
}
