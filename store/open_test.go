package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/cert-tracker/certification"
	"github.com/warp/cert-tracker/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			st, closeStore, err := Open(ctx, config.Config{Driver: driver, DBPath: ":memory:"}, zap.NewNop())
			require.NoError(t, err)
			defer closeStore()

			created, err := st.Create(ctx, certification.Employee{FirstName: "Ada", LastName: "L"})
			require.NoError(t, err)

			got, err := st.FindByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "Ada", got.FirstName)

			require.NoError(t, st.Reset(ctx))
			all, err := st.FindAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), config.Config{Driver: "mongo"}, nil)

	assert.ErrorContains(t, err, "unknown storage driver")
}
