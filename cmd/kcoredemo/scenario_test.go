package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenarioDefaultsWhenNoPathGiven(t *testing.T) {
	cfg, err := loadScenario("")
	require.NoError(t, err)
	assert.Equal(t, defaultScenario, cfg)
}

func TestLoadScenarioParsesYAMLFile(t *testing.T) {
	cfg, err := loadScenario("testdata/bus.yaml")
	require.NoError(t, err)
	assert.Equal(t, "bus", cfg.Kind)
	require.Len(t, cfg.Workers, 3)
	assert.Equal(t, "watchdog", cfg.Workers[2].Name)
	assert.Equal(t, uint8(3), cfg.Workers[2].Priority)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := loadScenario("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}

func TestRunMutexScenarioOrdersByPriority(t *testing.T) {
	order := runMutexScenario(defaultScenario)
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestRunBusScenarioDeliversToSubscriber(t *testing.T) {
	cfg, err := loadScenario("testdata/bus.yaml")
	require.NoError(t, err)
	delivered := runBusScenario(cfg)
	require.Len(t, delivered, 3)
	for _, n := range delivered {
		assert.Equal(t, 1, n)
	}
}

func TestRunMailboxScenarioRoundTripsInOrder(t *testing.T) {
	cfg := ScenarioConfig{Kind: "mailbox", Workers: []Worker{
		{Name: "a", Priority: 6},
		{Name: "b", Priority: 6},
	}}
	drained := runMailboxScenario(cfg)
	assert.Equal(t, []string{"a", "b"}, drained)
}
