package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aciila/go-ddd-boilerplate/config"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain/repository"
)

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestOpen_SQLiteFilePersists(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{StorageDriver: config.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "users.db")}

	st, err := Open(ctx, cfg, quiet())
	require.NoError(t, err)
	u, err := entity.NewUser("ann@x.com", "Ann")
	require.NoError(t, err)
	_, err = st.Users.Insert(ctx, u)
	require.NoError(t, err)
	st.Close()

	st, err = Open(ctx, cfg, quiet())
	require.NoError(t, err)
	defer st.Close()
	n, err := st.Users.Count(ctx, repository.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StorageDriver: "mongo"}, quiet())
	assert.Error(t, err)
}
