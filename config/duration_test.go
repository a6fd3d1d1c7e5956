package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshal(t *testing.T) {
	var v struct {
		D Duration `yaml:"d"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("d: 1m30s"), &v))
	assert.Equal(t, 90*time.Second, v.D.Std())

	require.NoError(t, yaml.Unmarshal([]byte("d: 45"), &v))
	assert.Equal(t, 45*time.Second, v.D.Std(), "bare integers are seconds")

	assert.Error(t, yaml.Unmarshal([]byte("d: soon"), &v))
}
