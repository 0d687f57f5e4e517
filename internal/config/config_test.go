package config_test

import (
	"os"
	"runtime"
	"testing"

	"github.com/paveg/vexpr/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultValues(t *testing.T) {
	config := config.NewConfig()

	assert.Equal(t, 100000, config.ParallelThreshold)
	assert.Equal(t, 0, config.WorkerPoolSize) // 0 means auto-detect
	assert.Equal(t, 16, config.MaxParallelism)
	assert.Equal(t, 8, config.TransformHashThreshold)
	assert.False(t, config.VerboseLogging)
	assert.False(t, config.MetricsCollection)
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name          string
		config        config.Config
		expectedError string
	}{
		{
			name: "valid config",
			config: config.Config{
				ParallelThreshold:      500,
				WorkerPoolSize:         4,
				MaxParallelism:         8,
				TransformHashThreshold: 4,
			},
		},
		{
			name: "negative parallel threshold",
			config: config.Config{
				ParallelThreshold:      -1,
				MaxParallelism:         8,
				TransformHashThreshold: 4,
			},
			expectedError: "ParallelThreshold must be positive, got -1",
		},
		{
			name: "negative worker pool size",
			config: config.Config{
				ParallelThreshold:      1000,
				WorkerPoolSize:         -1,
				MaxParallelism:         8,
				TransformHashThreshold: 4,
			},
			expectedError: "WorkerPoolSize must be non-negative, got -1",
		},
		{
			name: "zero max parallelism",
			config: config.Config{
				ParallelThreshold:      1000,
				TransformHashThreshold: 4,
			},
			expectedError: "MaxParallelism must be positive, got 0",
		},
		{
			name: "zero transform hash threshold",
			config: config.Config{
				ParallelThreshold: 1000,
				MaxParallelism:    8,
			},
			expectedError: "TransformHashThreshold must be positive, got 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectedError == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.expectedError, err.Error())
		})
	}
}

func TestConfig_LoadFromJSON(t *testing.T) {
	jsonData := `{
		"parallel_threshold": 2000,
		"worker_pool_size": 8,
		"transform_hash_threshold": 32,
		"metrics_collection": true
	}`

	config, err := config.LoadFromJSON([]byte(jsonData))
	require.NoError(t, err)

	assert.Equal(t, 2000, config.ParallelThreshold)
	assert.Equal(t, 8, config.WorkerPoolSize)
	assert.Equal(t, 32, config.TransformHashThreshold)
	assert.Equal(t, 16, config.MaxParallelism, "zero value gets default")
	assert.True(t, config.MetricsCollection)
}

func TestConfig_LoadFromYAML(t *testing.T) {
	yamlData := `
parallel_threshold: 2000
max_parallelism: 4
verbose_logging: true
`
	config, err := config.LoadFromYAML([]byte(yamlData))
	require.NoError(t, err)

	assert.Equal(t, 2000, config.ParallelThreshold)
	assert.Equal(t, 4, config.MaxParallelism)
	assert.Equal(t, 8, config.TransformHashThreshold)
	assert.True(t, config.VerboseLogging)
}

func TestConfig_LoadFromFile(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		data    string
	}{
		{
			name:    "json",
			pattern: "config_test_*.json",
			data:    `{"parallel_threshold": 1500, "worker_pool_size": 4, "verbose_logging": true}`,
		},
		{
			name:    "yaml",
			pattern: "config_test_*.yaml",
			data:    "parallel_threshold: 1500\nworker_pool_size: 4\nverbose_logging: true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpFile, err := os.CreateTemp(t.TempDir(), tt.pattern)
			require.NoError(t, err)
			_, err = tmpFile.WriteString(tt.data)
			require.NoError(t, err)
			_ = tmpFile.Close()

			config, err := config.LoadFromFile(tmpFile.Name())
			require.NoError(t, err)

			assert.Equal(t, 1500, config.ParallelThreshold)
			assert.Equal(t, 4, config.WorkerPoolSize)
			assert.True(t, config.VerboseLogging)
		})
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("VEXPR_PARALLEL_THRESHOLD", "3000")
	t.Setenv("VEXPR_WORKER_POOL_SIZE", "12")
	t.Setenv("VEXPR_TRANSFORM_HASH_THRESHOLD", "64")
	t.Setenv("VEXPR_METRICS_COLLECTION", "true")
	t.Setenv("VEXPR_MAX_PARALLELISM", "not-a-number")

	config := config.LoadFromEnv()

	assert.Equal(t, 3000, config.ParallelThreshold)
	assert.Equal(t, 12, config.WorkerPoolSize)
	assert.Equal(t, 64, config.TransformHashThreshold)
	assert.True(t, config.MetricsCollection)
	assert.Equal(t, 16, config.MaxParallelism, "unparsable values keep the default")
}

func TestConfig_WithDefaults(t *testing.T) {
	config := config.Config{
		ParallelThreshold: 2000,
	}

	configWithDefaults := config.WithDefaults()

	assert.Equal(t, 2000, configWithDefaults.ParallelThreshold)
	assert.Equal(t, 0, configWithDefaults.WorkerPoolSize)
	assert.Equal(t, 16, configWithDefaults.MaxParallelism)
	assert.Equal(t, 8, configWithDefaults.TransformHashThreshold)
	assert.False(t, configWithDefaults.VerboseLogging)
}

func TestConfig_Workers(t *testing.T) {
	assert.Equal(t, 3, config.Config{WorkerPoolSize: 3, MaxParallelism: 16}.Workers())
	assert.Equal(t, 2, config.Config{WorkerPoolSize: 8, MaxParallelism: 2}.Workers())
	assert.Equal(t, min(runtime.NumCPU(), 64), config.Config{MaxParallelism: 64}.Workers())
}

func TestGlobalConfig_SetAndGet(t *testing.T) {
	originalConfig := config.GetGlobalConfig()
	defer config.SetGlobalConfig(originalConfig)

	newConfig := config.NewConfig()
	newConfig.TransformHashThreshold = 2
	config.SetGlobalConfig(newConfig)

	assert.Equal(t, 2, config.GetGlobalConfig().TransformHashThreshold)
}

func TestConfig_UnsupportedFileFormat(t *testing.T) {
	tmpFile, err := os.CreateTemp(t.TempDir(), "config_test_*.toml")
	require.NoError(t, err)
	_ = tmpFile.Close()

	_, err = config.LoadFromFile(tmpFile.Name())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file format: .toml")
}

func TestConfig_InvalidInput(t *testing.T) {
	_, err := config.LoadFromJSON([]byte(`{"parallel_threshold": "many"}`))
	assert.Error(t, err)

	_, err = config.LoadFromYAML([]byte("parallel_threshold: [1, 2"))
	assert.Error(t, err)

	_, err = config.LoadFromFile("/non/existent/config.json")
	assert.Error(t, err)
}

func TestConfig_ValidationRecommendations(t *testing.T) {
	validator := config.NewConfigValidator()

	cfg := config.NewConfig()
	validated, warnings, err := validator.Validate(cfg)
	require.NoError(t, err)
	assert.Positive(t, validated.WorkerPoolSize)
	assert.NotEmpty(t, warnings)

	cfg.ParallelThreshold = 0
	_, _, err = validator.Validate(cfg)
	assert.Error(t, err)
}

func TestConfig_SystemInfo(t *testing.T) {
	info := config.GetSystemInfo()
	assert.Positive(t, info.CPUCount)
	assert.Equal(t, runtime.GOOS, info.OSType)
	assert.Equal(t, runtime.GOARCH, info.Architecture)
}
