package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaayien/internal/apperr"
	"adaayien/internal/domain"
)

func TestCart_GetLazilyCreates(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "c@example.com", domain.RoleCustomer)

	v, err := e.cart.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.Zero(t, v.Total)

	again, err := e.cart.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, again.ID)
}

func TestCart_AddMergesByFabric(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "c@example.com", domain.RoleCustomer)
	f := e.fabric(t, "silk", 10)

	_, err := e.cart.Add(ctx, u.ID, f.ID, 2)
	require.NoError(t, err)
	v, err := e.cart.Add(ctx, u.ID, f.ID, 1.5)
	require.NoError(t, err)

	require.Len(t, v.Items, 1)
	assert.Equal(t, 3.5, v.Items[0].Quantity)
	assert.Equal(t, 35.0, v.Total)
	require.NotNil(t, v.Items[0].Fabric)
	assert.Equal(t, "silk", v.Items[0].Fabric.Name)
}

func TestCart_PriceIsFrozen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "c@example.com", domain.RoleCustomer)
	f := e.fabric(t, "linen", 8)

	_, err := e.cart.Add(ctx, u.ID, f.ID, 2)
	require.NoError(t, err)

	price := 20.0
	_, err = e.fabrics.Update(ctx, f.ID, UpdateFabricInput{Price: &price})
	require.NoError(t, err)

	v, err := e.cart.Add(ctx, u.ID, f.ID, 1)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 8.0, v.Items[0].Price)
	assert.Equal(t, 24.0, v.Total)
	assert.Equal(t, 20.0, v.Items[0].Fabric.Price)
}

func TestCart_AddRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "c@example.com", domain.RoleCustomer)
	f := e.fabric(t, "wool", 12)

	_, err := e.cart.Add(ctx, u.ID, f.ID, 0.4)
	assert.Equal(t, apperr.KindInsufficientQty, apperr.KindOf(err))

	_, err = e.cart.Add(ctx, u.ID, "missing", 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	off := false
	_, err = e.fabrics.Update(ctx, f.ID, UpdateFabricInput{InStock: &off})
	require.NoError(t, err)
	_, err = e.cart.Add(ctx, u.ID, f.ID, 1)
	assert.Equal(t, apperr.KindOutOfStock, apperr.KindOf(err))

	v, err := e.cart.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
}

func TestCart_UpdateRemoveClear(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "c@example.com", domain.RoleCustomer)
	a := e.fabric(t, "a", 10)
	b := e.fabric(t, "b", 4)

	_, err := e.cart.Update(ctx, u.ID, a.ID, 2)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = e.cart.Add(ctx, u.ID, a.ID, 1)
	require.NoError(t, err)
	_, err = e.cart.Add(ctx, u.ID, b.ID, 0.5)
	require.NoError(t, err)

	v, err := e.cart.Update(ctx, u.ID, a.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 32.0, v.Total)

	_, err = e.cart.Update(ctx, u.ID, a.ID, 0)
	assert.Equal(t, apperr.KindInsufficientQty, apperr.KindOf(err))

	// 删除不存在的行不报错
	v, err = e.cart.Remove(ctx, u.ID, "not-in-cart")
	require.NoError(t, err)
	assert.Len(t, v.Items, 2)

	v, err = e.cart.Remove(ctx, u.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, b.ID, v.Items[0].FabricID)
	assert.Equal(t, 2.0, v.Total)

	v, err = e.cart.Clear(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.Zero(t, v.Total)
}

func TestCart_TotalMatchesLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "c@example.com", domain.RoleCustomer)
	prices := []float64{3.25, 7.5, 12}
	for i, p := range prices {
		f := e.fabric(t, string(rune('a'+i)), p)
		_, err := e.cart.Add(ctx, u.ID, f.ID, float64(i)+0.5)
		require.NoError(t, err)
	}
	v, err := e.cart.Get(ctx, u.ID)
	require.NoError(t, err)
	var sum float64
	for _, l := range v.Items {
		assert.Equal(t, l.Quantity*l.Price, l.Subtotal)
		sum += l.Subtotal
	}
	assert.InDelta(t, sum, v.Total, 1e-9)
	assert.Equal(t, 3, v.ItemCount)
}

func TestCart_ConcurrentAddsDoNotLoseUpdates(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "c@example.com", domain.RoleCustomer)
	f := e.fabric(t, "velvet", 1)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.cart.Add(context.Background(), u.ID, f.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := e.cart.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 10.0, v.Items[0].Quantity)
}

func TestCart_MutationRefreshesExpiry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "c@example.com", domain.RoleCustomer)
	f := e.fabric(t, "denim", 5)

	first, err := e.cart.Get(ctx, u.ID)
	require.NoError(t, err)
	e.clock.Advance(48 * time.Hour)
	v, err := e.cart.Add(ctx, u.ID, f.ID, 1)
	require.NoError(t, err)
	assert.True(t, v.ExpiresAt.After(first.ExpiresAt))
}
