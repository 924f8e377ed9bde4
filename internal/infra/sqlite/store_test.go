package sqlite

import (
	"path/filepath"
	"testing"

	"exam-practice-service/internal/infra/storetest"
	"github.com/stretchr/testify/require"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		s, err := Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenFileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exam.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
