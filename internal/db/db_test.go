package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiertrack/internal/config"
	"tiertrack/pkg/journal"
	"tiertrack/pkg/task"
)

func TestOpenFileAndSQLite(t *testing.T) {
	ctx := context.Background()
	for _, driver := range []string{config.DriverFile, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.Driver = driver
			cfg.Store.Path = filepath.Join(t.TempDir(), "state")
			cfg.Tracker.TopN = 4

			b, err := Open(ctx, cfg)
			require.NoError(t, err)
			defer b.Close()

			assert.IsType(t, &journal.MemStore{}, b.Journal)
			st, err := b.Tasks.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, 4, st.Settings.TopN, "fresh stores start from configured settings")

			_, err = st.Create("x", "", task.P1, time.Now())
			require.NoError(t, err)
			require.NoError(t, b.Tasks.Save(ctx, st))
			again, err := b.Tasks.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, again.Tasks, 1)
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "mongo"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestConnectEmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.Error(t, err)
}
