package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_KV_SetGetRequiresCommit(t *testing.T) {
	s := New()
	s.SetU16(NamespaceConfig, "mode", 3)

	_, err := s.GetU16(NamespaceConfig, "mode")
	assert.Error(t, err)

	s.Commit()

	v, err := s.GetU16(NamespaceConfig, "mode")
	require.NoError(t, err)
	assert.Equal(t, uint16(3), v)
}

func Test_KV_WrongSizeIsError(t *testing.T) {
	s := New()
	s.SetU8(NamespaceSettings, "rc_mode", 1)
	s.Commit()

	_, err := s.GetU32(NamespaceSettings, "rc_mode")
	assert.Error(t, err)
}

func Test_KV_NamespacesAreIndependent(t *testing.T) {
	s := New()
	s.SetStr(NamespaceConfig, "k", "config-value")
	s.SetStr(NamespaceSettings, "k", "settings-value")
	s.Commit()

	cv, err := s.GetStr(NamespaceConfig, "k")
	require.NoError(t, err)
	sv, err := s.GetStr(NamespaceSettings, "k")
	require.NoError(t, err)

	assert.Equal(t, "config-value", cv)
	assert.Equal(t, "settings-value", sv)
}
