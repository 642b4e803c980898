package oai

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/yanizio/oairepo/internal/model"
)

func (e *Engine) listSets(ctx context.Context, a Args) (*ListSets, error) {
	// Set lists are never paginated, so no token can be valid here.
	if a.Resuming() {
		return nil, errBadResumptionToken
	}

	sets, err := e.deps.Sets.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	if len(sets) == 0 {
		return nil, errNoSetHierarchy
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Spec < sets[j].Spec })

	out := &ListSets{Sets: make([]SetInfo, 0, len(sets))}
	for _, s := range sets {
		out.Sets = append(out.Sets, SetInfo{
			Spec:        s.Spec,
			Name:        s.Name,
			Description: newSetDescription(s.Description),
		})
	}
	return out, nil
}

// templatesForSet returns every template version in the set's member
// groups.  An unknown setSpec is noRecordsMatch.
func (e *Engine) templatesForSet(ctx context.Context, spec string) ([]int64, error) {
	set, err := e.deps.Sets.BySpec(ctx, spec)
	if errors.Is(err, model.ErrNotFound) {
		return nil, errNoRecordsMatch
	}
	if err != nil {
		return nil, fmt.Errorf("resolve set %q: %w", spec, err)
	}
	ids, err := e.deps.Templates.IDsInGroups(ctx, set.TemplateGroups)
	if err != nil {
		return nil, fmt.Errorf("resolve set %q: %w", spec, err)
	}
	return ids, nil
}

// intersect keeps the ids of a that also occur in b, in a's order.
func intersect(a, b []int64) []int64 {
	in := make(map[int64]struct{}, len(b))
	for _, id := range b {
		in[id] = struct{}{}
	}
	out := make([]int64, 0, len(a))
	for _, id := range a {
		if _, ok := in[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
