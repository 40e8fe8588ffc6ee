package draft_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigmove/backend/internal/draft"
	"github.com/bigmove/backend/internal/models"
	"github.com/bigmove/backend/internal/pricing"
)

type memPersister struct {
	mu      sync.Mutex
	drafts  map[string]models.OrderDraft
	saves   int
	saveErr error
}

func newMemPersister() *memPersister {
	return &memPersister{drafts: make(map[string]models.OrderDraft)}
}

func (p *memPersister) Save(_ context.Context, key string, d models.OrderDraft) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.drafts[key] = d
	return nil
}

func (p *memPersister) Load(_ context.Context, key string) (*models.OrderDraft, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drafts[key]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (p *memPersister) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.drafts, key)
	return nil
}

type fakeCreator struct {
	err   error
	calls int
	got   models.OrderDraft
}

func (c *fakeCreator) CreateOrder(_ context.Context, d models.OrderDraft) (*models.Order, error) {
	c.calls++
	c.got = d
	if c.err != nil {
		return nil, c.err
	}
	return &models.Order{ID: "order-1", Status: models.OrderStatusPending, Draft: d, TotalPrice: d.PriceDetails.TotalPrice}, nil
}

func items(list ...models.OrderItem) *[]models.OrderItem { return &list }

func TestUpdateRecomputesFromMergedState(t *testing.T) {
	ctx := context.Background()
	s := draft.New("s1", nil, nil)

	d, err := s.Update(ctx, draft.Patch{Items: items(models.OrderItem{ID: "sofa", Name: "소파", Quantity: 2, Price: 30000})})
	require.NoError(t, err)
	assert.Equal(t, int64(60000), d.PriceDetails.TotalPrice)

	d, _ = s.Update(ctx, draft.Patch{DeliveryInfo: &models.DeliveryInfo{
		Date: "2026-10-20", LoadingTime: "09:00", UnloadingTime: "12:00",
		DeliveryOption: models.DeliveryNextDay, DeliveryFee: 30000,
	}})
	assert.Equal(t, int64(90000), d.PriceDetails.TotalPrice)
	assert.Equal(t, int64(60000), d.PriceDetails.BasePrice)

	addr := pricing.ApplyDistance(models.Addresses{FromAddress: "a", ToAddress: "b"}, 15.4)
	d, _ = s.Update(ctx, draft.Patch{Addresses: &addr})
	assert.Equal(t, int64(100800), d.PriceDetails.TotalPrice)

	d, _ = s.Update(ctx, draft.Patch{ServiceOptions: &models.ServiceOptions{TotalOptionFee: 70000}})
	assert.Equal(t, int64(170800), d.PriceDetails.TotalPrice)

	// Replacing a section replaces its fee, it does not accumulate.
	d, _ = s.Update(ctx, draft.Patch{ServiceOptions: &models.ServiceOptions{TotalOptionFee: 20000}})
	assert.Equal(t, int64(120800), d.PriceDetails.TotalPrice)
	assert.Equal(t, "2026-10-20", d.DeliveryInfo.Date)
	assert.Equal(t, int64(120800), s.CalculateTotalPrice())
}

func TestTotalMatchesInvariantForRandomSequences(t *testing.T) {
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(42))
	s := draft.New("rand", nil, nil)

	for i := 0; i < 500; i++ {
		var p draft.Patch
		switch rnd.Intn(4) {
		case 0:
			n := rnd.Intn(4)
			list := make([]models.OrderItem, n)
			for j := range list {
				list[j] = models.OrderItem{ID: "i", Quantity: int64(rnd.Intn(5)), Price: int64(rnd.Intn(100000))}
			}
			p.Items = &list
		case 1:
			p.DeliveryInfo = &models.DeliveryInfo{DeliveryFee: int64(rnd.Intn(3)) * 20000}
		case 2:
			a := pricing.ApplyDistance(models.Addresses{}, rnd.Float64()*60)
			p.Addresses = &a
		case 3:
			p.ServiceOptions = &models.ServiceOptions{TotalOptionFee: int64(rnd.Intn(200000))}
		}
		d, err := s.Update(ctx, p)
		require.NoError(t, err)

		want := pricing.Subtotal(d.Items) + d.DeliveryInfo.DeliveryFee + d.Addresses.DistanceFee + d.ServiceOptions.TotalOptionFee
		require.Equal(t, want, d.PriceDetails.TotalPrice, "step %d", i)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()
	s := draft.New("iso", nil, nil)
	_, _ = s.Update(ctx, draft.Patch{Items: items(models.OrderItem{ID: "a", Quantity: 1, Price: 1000})})

	snap := s.Snapshot()
	snap.Items[0].Price = 999999

	assert.Equal(t, int64(1000), s.Snapshot().Items[0].Price)
}

func TestPersistAndRestore(t *testing.T) {
	ctx := context.Background()
	p := newMemPersister()
	s := draft.New("persisted", p, nil)

	_, err := s.Update(ctx, draft.Patch{Items: items(models.OrderItem{ID: "bed", Quantity: 1, Price: 45000})})
	require.NoError(t, err)
	assert.Equal(t, 1, p.saves)

	restored, err := draft.Restore(ctx, "persisted", p, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(45000), restored.Snapshot().PriceDetails.TotalPrice)

	fresh, err := draft.Restore(ctx, "missing", p, nil)
	require.NoError(t, err)
	assert.Empty(t, fresh.Snapshot().Items)
	assert.Equal(t, 10.0, fresh.Snapshot().Addresses.BaseDistance)
}

func TestUpdateKeepsStateWhenPersistFails(t *testing.T) {
	p := newMemPersister()
	p.saveErr = errors.New("redis down")
	s := draft.New("flaky", p, nil)

	d, err := s.Update(context.Background(), draft.Patch{Items: items(models.OrderItem{ID: "a", Quantity: 3, Price: 100})})
	assert.Error(t, err)
	assert.Equal(t, int64(300), d.PriceDetails.TotalPrice)
	assert.Equal(t, int64(300), s.Snapshot().PriceDetails.TotalPrice)
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	c := &fakeCreator{}
	s := draft.New("create", nil, c)
	_, _ = s.Update(ctx, draft.Patch{Items: items(models.OrderItem{ID: "a", Quantity: 1, Price: 5000})})

	order, err := s.CreateOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, int64(5000), c.got.PriceDetails.TotalPrice)
	assert.Empty(t, s.Err())
	assert.False(t, s.Loading())
}

func TestCreateOrderStoresErrorWithoutRetry(t *testing.T) {
	c := &fakeCreator{err: errors.New("network unreachable")}
	s := draft.New("fail", nil, c)

	_, err := s.CreateOrder(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, "network unreachable", s.Err())
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	p := newMemPersister()
	s := draft.New("reset", p, nil)
	_, _ = s.Update(ctx, draft.Patch{Items: items(models.OrderItem{ID: "a", Quantity: 1, Price: 5000})})
	s.SetStep(4)

	require.NoError(t, s.Reset(ctx))

	assert.Equal(t, 1, s.Step())
	assert.Equal(t, draft.Initial(), s.Snapshot())
	restored, _ := p.Load(ctx, "reset")
	assert.Empty(t, restored.Items)
}

func TestConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := draft.New("conc", nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fee := int64(i * 1000)
			_, _ = s.Update(ctx, draft.Patch{ServiceOptions: &models.ServiceOptions{TotalOptionFee: fee}})
		}(i)
	}
	wg.Wait()

	d := s.Snapshot()
	assert.Equal(t, d.ServiceOptions.TotalOptionFee, d.PriceDetails.TotalPrice)
}
