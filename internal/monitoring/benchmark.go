package monitoring

import (
	"fmt"
	"strings"
	"time"
)

const defaultIterations = 10

// BenchmarkScenario is one timed evaluation over a fixed number of rows.
type BenchmarkScenario struct {
	Name       string
	Rows       int
	Iterations int
	Operation  func() error
}

// BenchmarkResult contains the results of running a benchmark scenario.
type BenchmarkResult struct {
	Scenario        BenchmarkScenario `json:"-"`
	Name            string            `json:"name"`
	Iterations      int               `json:"iterations"`
	AverageDuration time.Duration     `json:"average_duration"`
	MinDuration     time.Duration     `json:"min_duration"`
	MaxDuration     time.Duration     `json:"max_duration"`
	RowsPerSec      float64           `json:"rows_per_sec"`
	Success         bool              `json:"success"`
	ErrorMessage    string            `json:"error_message,omitempty"`
}

// BenchmarkSuite manages and executes a collection of benchmark scenarios.
type BenchmarkSuite struct {
	scenarios []BenchmarkScenario
	results   []BenchmarkResult
}

// NewBenchmarkSuite creates a new benchmark suite.
func NewBenchmarkSuite() *BenchmarkSuite {
	return &BenchmarkSuite{}
}

// AddScenario adds a benchmark scenario to the suite. Scenarios without an
// iteration count run defaultIterations times.
func (bs *BenchmarkSuite) AddScenario(scenario BenchmarkScenario) {
	if scenario.Iterations <= 0 {
		scenario.Iterations = defaultIterations
	}
	bs.scenarios = append(bs.scenarios, scenario)
}

// Run executes all benchmark scenarios and returns the results.
func (bs *BenchmarkSuite) Run() []BenchmarkResult {
	bs.results = make([]BenchmarkResult, 0, len(bs.scenarios))
	for _, scenario := range bs.scenarios {
		bs.results = append(bs.results, runScenario(scenario))
	}
	return bs.results
}

func runScenario(scenario BenchmarkScenario) BenchmarkResult {
	result := BenchmarkResult{
		Scenario:   scenario,
		Name:       scenario.Name,
		Iterations: scenario.Iterations,
		Success:    true,
	}

	var total time.Duration
	completed := 0
	for i := range scenario.Iterations {
		start := time.Now()
		if err := scenario.Operation(); err != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("iteration %d failed: %v", i+1, err)
			break
		}
		d := time.Since(start)

		if completed == 0 || d < result.MinDuration {
			result.MinDuration = d
		}
		if d > result.MaxDuration {
			result.MaxDuration = d
		}
		total += d
		completed++
	}

	if completed > 0 {
		result.AverageDuration = total / time.Duration(completed)
	}
	if result.AverageDuration > 0 {
		result.RowsPerSec = float64(scenario.Rows) / result.AverageDuration.Seconds()
	}
	return result
}

// GetResults returns the benchmark results.
func (bs *BenchmarkSuite) GetResults() []BenchmarkResult {
	return bs.results
}

// GenerateReport generates a markdown table of the benchmark results.
func (bs *BenchmarkSuite) GenerateReport() string {
	if len(bs.results) == 0 {
		return "# Benchmark Report\n\nNo benchmark results available.\n"
	}

	var report strings.Builder
	report.WriteString("# Benchmark Report\n\n")
	report.WriteString("| Scenario | Rows | Iterations | Avg | Min | Max | Rows/Sec | Status |\n")
	report.WriteString("|----------|------|------------|-----|-----|-----|----------|--------|\n")

	for _, r := range bs.results {
		status := "ok"
		if !r.Success {
			status = "failed: " + r.ErrorMessage
		}
		fmt.Fprintf(&report, "| %s | %d | %d | %v | %v | %v | %.0f | %s |\n",
			r.Name, r.Scenario.Rows, r.Iterations,
			r.AverageDuration, r.MinDuration, r.MaxDuration, r.RowsPerSec, status)
	}
	return report.String()
}

// Clear removes all scenarios and results from the suite.
func (bs *BenchmarkSuite) Clear() {
	bs.scenarios = bs.scenarios[:0]
	bs.results = bs.results[:0]
}
