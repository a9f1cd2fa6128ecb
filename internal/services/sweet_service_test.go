package services_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"sweetshop/internal/events"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
	"sweetshop/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func asUser(id uint) context.Context {
	return services.WithIdentity(context.Background(), services.Identity{UserID: id})
}

func asAdmin(id uint) context.Context {
	return services.WithIdentity(context.Background(), services.Identity{UserID: id, IsAdmin: true})
}

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, field, verr.Field)
}

func TestSweetService_Create(t *testing.T) {
	svc := services.NewSweetService(repositories.NewMemorySweetRepository(), nil, nil)
	ctx := asUser(1)

	first, err := svc.Create(ctx, &models.Sweet{Name: "Toffee", Category: "Chewy", Price: 1.25, Quantity: 0})
	require.NoError(t, err)
	second, err := svc.Create(ctx, &models.Sweet{Name: "Toffee", Category: "Chewy", Price: 1.25, Quantity: 3})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID, "names are not unique, ids are")
}

func TestSweetService_CreateValidation(t *testing.T) {
	svc := services.NewSweetService(repositories.NewMemorySweetRepository(), nil, nil)
	ctx := asUser(1)

	cases := []struct {
		sweet models.Sweet
		field string
	}{
		{models.Sweet{Category: "c", Price: 1, Quantity: 1}, "name"},
		{models.Sweet{Name: "n", Price: 1, Quantity: 1}, "category"},
		{models.Sweet{Name: "n", Category: "c", Price: 0, Quantity: 1}, "price"},
		{models.Sweet{Name: "n", Category: "c", Price: -2, Quantity: 1}, "price"},
		{models.Sweet{Name: "n", Category: "c", Price: math.NaN(), Quantity: 1}, "price"},
		{models.Sweet{Name: "n", Category: "c", Price: 1, Quantity: -1}, "quantity"},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			sweet := tc.sweet
			_, err := svc.Create(ctx, &sweet)
			assertValidation(t, err, tc.field)
		})
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSweetService_ListUsesCache(t *testing.T) {
	repo := new(MockSweetRepository)
	c := new(MockCache)
	svc := services.NewSweetService(repo, c, nil)
	ctx := context.Background()

	stored := []models.Sweet{{ID: 1, Name: "Fudge", Category: "Soft", Price: 2, Quantity: 4}}

	c.On("Get", mock.Anything, services.ListCacheKey, mock.Anything).Return(false, nil).Once()
	repo.On("GetAll", mock.Anything).Return(stored, nil).Once()
	c.On("Set", mock.Anything, services.ListCacheKey, stored).Return(nil).Once()

	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	c.On("Get", mock.Anything, services.ListCacheKey, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*[]models.Sweet) = stored
		}).
		Return(true, nil).Once()

	got, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestSweetService_ListSurvivesCacheFailure(t *testing.T) {
	repo := new(MockSweetRepository)
	c := new(MockCache)
	svc := services.NewSweetService(repo, c, nil)

	stored := []models.Sweet{{ID: 1, Name: "Fudge", Category: "Soft", Price: 2, Quantity: 4}}
	c.On("Get", mock.Anything, services.ListCacheKey, mock.Anything).Return(false, errors.New("redis down")).Once()
	repo.On("GetAll", mock.Anything).Return(stored, nil).Once()
	c.On("Set", mock.Anything, services.ListCacheKey, stored).Return(errors.New("redis down")).Once()

	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestSweetService_MutationsInvalidateCacheAndPublish(t *testing.T) {
	repo := repositories.NewMemorySweetRepository()
	c := new(MockCache)
	pub := new(MockPublisher)
	svc := services.NewSweetService(repo, c, pub)
	ctx := asAdmin(7)

	c.On("Delete", mock.Anything, services.ListCacheKey).Return(nil)
	publishes := func(typ events.Type, quantity int) {
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
			return e.Type == typ && e.Quantity == quantity && e.ActorID == 7
		})).Return(nil).Once()
	}
	publishes(events.SweetCreated, 5)
	publishes(events.SweetUpdated, 5)
	publishes(events.SweetPurchased, 2)
	publishes(events.SweetRestocked, 4)
	publishes(events.SweetDeleted, 0)

	sweet, err := svc.Create(ctx, &models.Sweet{Name: "Fudge", Category: "Soft", Price: 2, Quantity: 5})
	require.NoError(t, err)
	_, err = svc.Update(ctx, sweet.ID, models.SweetPatch{Price: ptr(3.0)})
	require.NoError(t, err)
	_, err = svc.Purchase(ctx, sweet.ID, 2)
	require.NoError(t, err)
	_, err = svc.Restock(ctx, sweet.ID, 4)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, sweet.ID))

	c.AssertNumberOfCalls(t, "Delete", 5)
	pub.AssertExpectations(t)
}

func TestSweetService_PublishFailureDoesNotFailMutation(t *testing.T) {
	pub := new(MockPublisher)
	svc := services.NewSweetService(repositories.NewMemorySweetRepository(), nil, pub)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	sweet, err := svc.Create(asUser(1), &models.Sweet{Name: "Fudge", Category: "Soft", Price: 2, Quantity: 5})
	require.NoError(t, err)
	assert.NotZero(t, sweet.ID)
}

func TestSweetService_Search(t *testing.T) {
	repo := new(MockSweetRepository)
	svc := services.NewSweetService(repo, nil, nil)
	ctx := asUser(1)

	filter := models.SweetFilter{Name: "choc", MinPrice: ptr(1.0)}
	repo.On("Search", mock.Anything, filter).Return([]models.Sweet{{ID: 2, Name: "Chocolate"}}, nil).Once()

	got, err := svc.Search(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// No filters falls back to the full listing.
	repo.On("GetAll", mock.Anything).Return([]models.Sweet{}, nil).Once()
	_, err = svc.Search(ctx, models.SweetFilter{})
	require.NoError(t, err)

	_, err = svc.Search(ctx, models.SweetFilter{MinPrice: ptr(-1.0)})
	assertValidation(t, err, "min_price")
	_, err = svc.Search(ctx, models.SweetFilter{MaxPrice: ptr(-0.5)})
	assertValidation(t, err, "max_price")

	repo.AssertExpectations(t)
}

func TestSweetService_Get(t *testing.T) {
	svc := services.NewSweetService(repositories.NewMemorySweetRepository(), nil, nil)
	ctx := asUser(1)

	created, err := svc.Create(ctx, &models.Sweet{Name: "Fudge", Category: "Soft", Price: 2, Quantity: 5})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fudge", got.Name)

	_, err = svc.Get(ctx, 404)
	assert.ErrorIs(t, err, services.ErrSweetNotFound)
}

func TestSweetService_UpdatePartial(t *testing.T) {
	svc := services.NewSweetService(repositories.NewMemorySweetRepository(), nil, nil)
	ctx := asUser(1)

	created, err := svc.Create(ctx, &models.Sweet{Name: "Fudge", Category: "Soft", Price: 2, Quantity: 5})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, models.SweetPatch{Price: ptr(2.75)})
	require.NoError(t, err)
	assert.Equal(t, models.Sweet{ID: created.ID, Name: "Fudge", Category: "Soft", Price: 2.75, Quantity: 5}, *updated)

	_, err = svc.Update(ctx, created.ID, models.SweetPatch{Price: ptr(0.0)})
	assertValidation(t, err, "price")
	_, err = svc.Update(ctx, created.ID, models.SweetPatch{Name: ptr("")})
	assertValidation(t, err, "name")
	_, err = svc.Update(ctx, created.ID, models.SweetPatch{Quantity: ptr(-1)})
	assertValidation(t, err, "quantity")

	_, err = svc.Update(ctx, 404, models.SweetPatch{Price: ptr(1.0)})
	assert.ErrorIs(t, err, services.ErrSweetNotFound)

	unchanged, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.75, unchanged.Price)
}

func TestSweetService_Purchase(t *testing.T) {
	svc := services.NewSweetService(repositories.NewMemorySweetRepository(), nil, nil)
	ctx := asUser(1)

	created, err := svc.Create(ctx, &models.Sweet{Name: "Fudge", Category: "Soft", Price: 2, Quantity: 5})
	require.NoError(t, err)

	after, err := svc.Purchase(ctx, created.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Quantity)

	_, err = svc.Purchase(ctx, created.ID, 1)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "insufficient")

	_, err = svc.Purchase(ctx, created.ID, 0)
	assertValidation(t, err, "quantity")
	_, err = svc.Purchase(ctx, created.ID, -3)
	assertValidation(t, err, "quantity")

	_, err = svc.Purchase(ctx, 404, 1)
	assert.ErrorIs(t, err, services.ErrSweetNotFound)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
}

func TestSweetService_PurchasePropagatesStorageErrors(t *testing.T) {
	repo := new(MockSweetRepository)
	svc := services.NewSweetService(repo, nil, nil)
	repo.On("Decrement", mock.Anything, uint(1), 1).Return(nil, errors.New("disk full")).Once()

	_, err := svc.Purchase(asUser(1), 1, 1)
	assert.ErrorContains(t, err, "disk full")
	assert.NotErrorIs(t, err, services.ErrSweetNotFound)
}

func TestSweetService_RestockAndDeleteRequireAdmin(t *testing.T) {
	svc := services.NewSweetService(repositories.NewMemorySweetRepository(), nil, nil)

	created, err := svc.Create(asUser(1), &models.Sweet{Name: "Fudge", Category: "Soft", Price: 2, Quantity: 5})
	require.NoError(t, err)

	_, err = svc.Restock(asUser(1), created.ID, 3)
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(asUser(1), created.ID), services.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID), services.ErrUnauthenticated)

	restocked, err := svc.Restock(asAdmin(2), created.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, restocked.Quantity)

	_, err = svc.Restock(asAdmin(2), created.ID, 0)
	assertValidation(t, err, "quantity")
	_, err = svc.Restock(asAdmin(2), created.ID, math.MaxInt)
	assertValidation(t, err, "quantity")
	_, err = svc.Restock(asAdmin(2), 404, 1)
	assert.ErrorIs(t, err, services.ErrSweetNotFound)

	require.NoError(t, svc.Delete(asAdmin(2), created.ID))
	assert.ErrorIs(t, svc.Delete(asAdmin(2), created.ID), services.ErrSweetNotFound)
}
