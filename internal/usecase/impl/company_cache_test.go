package impl

import (
	"context"
	"testing"
	"time"

	"citas/internal/domain/entity"
	"citas/internal/domain/repository"
	"citas/internal/infra/storage/memory"
	mockSvc "citas/internal/mocks/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testMarkers = []string{"activo", "vigente"}

func TestCompanyCache_PutAndGet(t *testing.T) {
	ctx := context.Background()
	clock := mockSvc.NewFakeClock(testNow)
	cache := NewCompanyCache(memory.NewSlotStore(), clock, time.Hour, testMarkers, mockSvc.NewMockTokenValidator(t), newDiscardLogger())

	company := activeCompany()
	require.NoError(t, cache.Put(ctx, company))
	assert.Equal(t, testNow, company.FechaVerificacion)

	clock.Advance(59 * time.Minute)
	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "01-123-4567", cached.NumeroPatronal)
	assert.True(t, cached.FechaVerificacion.Equal(testNow))
}

func TestCompanyCache_StaleEntryIsCleared(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSlotStore()
	clock := mockSvc.NewFakeClock(testNow)
	cache := NewCompanyCache(store, clock, time.Hour, testMarkers, mockSvc.NewMockTokenValidator(t), newDiscardLogger())
	require.NoError(t, cache.Put(ctx, activeCompany()))

	var notified []*entity.VerifiedCompany
	cache.Subscribe(func(_ context.Context, company *entity.VerifiedCompany) {
		notified = append(notified, company)
	})

	clock.Advance(time.Hour)
	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)

	found, err := store.Get(ctx, repository.SlotVerifiedCompany, &entity.VerifiedCompany{})
	require.NoError(t, err)
	assert.False(t, found)
	require.Len(t, notified, 1)
	assert.Nil(t, notified[0])
}

func TestCompanyCache_GetRebroadcasts(t *testing.T) {
	ctx := context.Background()
	cache := NewCompanyCache(memory.NewSlotStore(), mockSvc.NewFakeClock(testNow), time.Hour, testMarkers, mockSvc.NewMockTokenValidator(t), newDiscardLogger())
	require.NoError(t, cache.Put(ctx, activeCompany()))

	calls := 0
	unsubscribe := cache.Subscribe(func(_ context.Context, company *entity.VerifiedCompany) {
		calls++
		require.NotNil(t, company)
	})

	_, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	unsubscribe()
	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCompanyCache_CanAccessExam(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		company    *entity.VerifiedCompany
		tokenValid bool
		checkToken bool
		want       bool
	}{
		{
			name: "no company",
			want: false,
		},
		{
			name:       "active and valid token",
			company:    activeCompany(),
			tokenValid: true,
			checkToken: true,
			want:       true,
		},
		{
			name:       "active but token invalid",
			company:    activeCompany(),
			tokenValid: false,
			checkToken: true,
			want:       false,
		},
		{
			name: "inactive status",
			company: func() *entity.VerifiedCompany {
				c := activeCompany()
				c.Estado = "SUSPENDIDO"

				return c
			}(),
			want: false,
		},
		{
			name: "status contains marker",
			company: func() *entity.VerifiedCompany {
				c := activeCompany()
				c.Estado = "Empresa Vigente"

				return c
			}(),
			tokenValid: true,
			checkToken: true,
			want:       true,
		},
		{
			name: "not verified",
			company: func() *entity.VerifiedCompany {
				c := activeCompany()
				c.Verified = false

				return c
			}(),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := mockSvc.NewMockTokenValidator(t)
			if tt.checkToken {
				tokens.On("IsTokenValid", mock.Anything).Return(tt.tokenValid).Once()
			}
			cache := NewCompanyCache(memory.NewSlotStore(), mockSvc.NewFakeClock(testNow), time.Hour, testMarkers, tokens, newDiscardLogger())
			if tt.company != nil {
				require.NoError(t, cache.Put(ctx, tt.company))
			}

			allowed, err := cache.CanAccessExam(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestCompanyCache_Clear(t *testing.T) {
	ctx := context.Background()
	cache := NewCompanyCache(memory.NewSlotStore(), mockSvc.NewFakeClock(testNow), 0, testMarkers, mockSvc.NewMockTokenValidator(t), newDiscardLogger())
	require.NoError(t, cache.Put(ctx, activeCompany()))
	require.NoError(t, cache.Clear(ctx))

	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
