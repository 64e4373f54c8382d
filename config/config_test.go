package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravenlrs/raven/air"
)

func Test_Default_UsesBuiltInModeTable(t *testing.T) {
	cfg := Default()
	table := cfg.ModeTable()

	assert.Equal(t, air.DefaultModeTable[air.Mode1], table[air.Mode1])
	assert.Equal(t, DefaultConsecutiveDownlinkLostLimit, cfg.DownlinkLostLimit())
}

func Test_SwitchThresholds_FallsBackToDefaults(t *testing.T) {
	cfg := Default()
	thresholds := cfg.SwitchThresholds()

	assert.Equal(t, air.DefaultSwitchThresholds, thresholds)
}

func Test_SwitchThresholds_AppliesOverrides(t *testing.T) {
	cfg := Config{LinkQualityPromoteThreshold: 90, PromoteSustainedCycles: 10, ConsecutiveDownlinkLostLimit: 3}
	thresholds := cfg.SwitchThresholds()

	assert.Equal(t, int8(90), thresholds.LinkQualityPromote)
	assert.Equal(t, 10, thresholds.PromoteSustainedCycles)
	assert.Equal(t, 3, thresholds.DownlinkLostLimit)
}

func Test_Load_OverridesOnlySpecifiedModeFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raven.yaml")

	yamlDoc := `
modes:
  1:
    packet_size: 20
consecutive_downlink_lost_limit: 5
serial_device: /dev/ttyUSB0
serial_baud: 420000
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	table := cfg.ModeTable()
	assert.Equal(t, 20, table[air.Mode1].PacketSize)
	assert.Equal(t, air.DefaultModeTable[air.Mode1].BandwidthHz, table[air.Mode1].BandwidthHz)
	assert.Equal(t, air.DefaultModeTable[air.Mode2], table[air.Mode2])

	assert.Equal(t, 5, cfg.DownlinkLostLimit())
	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialDevice)
	assert.Equal(t, 420000, cfg.SerialBaud)
}
