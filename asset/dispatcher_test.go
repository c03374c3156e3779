package asset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scenario 5: import plan with texture -> material edge (spec.md §8
// scenario 5). The texture item cooks to bindless index 7; the
// material item must only be submitted once the texture's result is
// available, and its emitted payload must reference that index.
func TestWorkDispatcher_TextureMaterialEdge(t *testing.T) {
	plan := NewPlan()
	tex := plan.AddItem(TextureResource, 0, "tex")
	mat := plan.AddItem(MaterialAsset, 0, "mat")
	require.True(t, plan.AddEdge(tex, mat))

	texPipe := NewPipeline(TextureResource, 1, 4, func(ctx context.Context, wi WorkItem) Result {
		return Result{ItemId: wi.ItemId, Payload: 7}
	}, nil)
	matPipe := NewPipeline(MaterialAsset, 1, 4, func(ctx context.Context, wi WorkItem) Result {
		return Result{ItemId: wi.ItemId, Payload: wi.Payload}
	}, nil)
	session := NewSession(map[Kind]*Pipeline{
		TextureResource: texPipe,
		MaterialAsset:   matPipe,
	})

	resolve := func(p *Plan, item Item, results map[ItemId]Result) any {
		if item.Id == mat {
			texRes := results[tex]
			require.NotNil(t, texRes.Payload, "material resolved before texture completed")
			return texRes.Payload
		}
		return nil
	}

	emitted := map[ItemId]Result{}
	emit := func(item Item, res Result) { emitted[item.Id] = res }

	dispatcher := NewWorkDispatcher(plan, session, resolve, emit, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := dispatcher.Run(ctx)
	require.NoError(t, err)

	require.Len(t, emitted, 2)
	require.Equal(t, 7, emitted[mat].Payload)
	require.False(t, plan.Incomplete())
}

func TestWorkDispatcher_FailsWhenPipelineMissing(t *testing.T) {
	plan := NewPlan()
	plan.AddItem(MaterialAsset, 0, "orphan")

	session := NewSession(map[Kind]*Pipeline{})
	dispatcher := NewWorkDispatcher(plan, session, func(*Plan, Item, map[ItemId]Result) any { return nil }, func(Item, Result) {}, nil)

	err := dispatcher.Run(context.Background())
	require.Error(t, err)
}
