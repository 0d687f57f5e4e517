package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/vexpr"
	"github.com/paveg/vexpr/internal/config"
	"github.com/paveg/vexpr/internal/monitoring"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
	"github.com/paveg/vexpr/internal/version"
)

const (
	defaultDemoRows      = 10
	defaultBenchmarkRows = 1_000_000
	benchmarkBatches     = 8
)

func customUsage() {
	fmt.Fprintf(os.Stderr, "vexpr CLI (version %s)\n\n", version.Version)
	fmt.Fprintf(os.Stderr, "Usage: vexpr-cli [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fmt.Fprintf(os.Stderr, "  --demo\n\t\tEvaluate sample CASE expressions and print the results\n")
	fmt.Fprintf(os.Stderr, "  --benchmark\n\t\tTime the conditional functions over generated batches\n")
	fmt.Fprintf(os.Stderr, "  --rows N\n\t\tNumber of rows (default: %d for demo, %d for benchmark)\n", defaultDemoRows, defaultBenchmarkRows)
	fmt.Fprintf(os.Stderr, "  --config FILE\n\t\tLoad engine configuration from a JSON or YAML file\n")
	fmt.Fprintf(os.Stderr, "  --metrics-addr ADDR\n\t\tServe Prometheus metrics on ADDR until interrupted\n")
	fmt.Fprintf(os.Stderr, "  --debug\n\t\tEnable debug logging\n")
	fmt.Fprintf(os.Stderr, "  -v, --version\n\t\tPrint version information and exit\n")
	fmt.Fprintf(os.Stderr, "  -h, --help\n\t\tShow this help message and exit\n")
}

func main() {
	versionFlag := flag.Bool("v", false, "Print version and exit")
	flag.BoolVar(versionFlag, "version", false, "Print version and exit") // alias
	demoFlag := flag.Bool("demo", false, "Run demo")
	benchmarkFlag := flag.Bool("benchmark", false, "Run benchmark")
	rowsFlag := flag.Int("rows", 0, "Number of rows")
	configFlag := flag.String("config", "", "Configuration file")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")

	//nolint:reassign // Standard Go pattern for customizing flag usage message
	flag.Usage = customUsage

	flag.Parse()

	if *versionFlag {
		fmt.Print(version.Info().String())
		return
	}

	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.LoadFromEnv()
	if *configFlag != "" {
		loaded, err := config.LoadFromFile(*configFlag)
		if err != nil {
			logger.Error("loading configuration", slog.Any("error", err))
			os.Exit(1)
		}
		cfg = loaded
	}
	if *metricsAddr != "" {
		cfg.MetricsCollection = true
	}

	engine, err := vexpr.NewEngine(vexpr.WithConfig(cfg), vexpr.WithLogger(logger))
	if err != nil {
		logger.Error("creating engine", slog.Any("error", err))
		os.Exit(1)
	}
	defer engine.Close()

	switch {
	case *demoFlag:
		err = runDemo(engine, *rowsFlag)
	case *benchmarkFlag:
		err = runBenchmark(engine, *rowsFlag)
	case *metricsAddr != "":
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}

	if *metricsAddr != "" {
		serveMetrics(engine.Metrics(), *metricsAddr, logger)
	}
}

// sampleBatch builds status (Int64 cycling 1..5), region (String) and
// premium (Nullable(Bool), NULL every seventh row) columns
func sampleBatch(rows, offset int, mem memory.Allocator) (*vexpr.Batch, error) {
	regions := []string{"eu", "us", "apac"}

	status := make([]int64, rows)
	region := make([]string, rows)
	premium := make([]bool, rows)
	premiumNull := make([]bool, rows)
	for i := range rows {
		n := i + offset
		status[i] = int64(n%5 + 1)
		region[i] = regions[n%len(regions)]
		premium[i] = n%2 == 0
		premiumNull[i] = n%7 == 6
	}

	premiumCol, err := series.NewNullableOf(premium, premiumNull, mem)
	if err != nil {
		return nil, err
	}
	return vexpr.NewBatch(
		vexpr.Entry{Name: "status", Type: types.Int64, Column: series.New(status, mem)},
		vexpr.Entry{Name: "region", Type: types.String, Column: series.New(region, mem)},
		vexpr.Entry{Name: "premium", Type: types.MustNullable(types.Bool), Column: premiumCol},
	)
}

func statusLabel() vexpr.Expr {
	return vexpr.CaseOf(vexpr.Col("status")).
		When(vexpr.Lit(1), vexpr.Lit("new")).
		When(vexpr.Lit(2), vexpr.Lit("active")).
		When(vexpr.Lit(3), vexpr.Lit("suspended")).
		Else(vexpr.Lit("closed"))
}

func discount() vexpr.Expr {
	return vexpr.Case().
		When(vexpr.Col("premium"), vexpr.Lit(0.2)).
		Else(vexpr.Lit(0.0))
}

func runDemo(engine *vexpr.Engine, rows int) error {
	if rows <= 0 {
		rows = defaultDemoRows
	}
	ctx := context.Background()
	mem := memory.NewGoAllocator()

	b, err := sampleBatch(rows, 0, mem)
	if err != nil {
		return err
	}
	defer b.Release()

	fmt.Printf("Input batch: %d rows, columns %v\n\n", b.Rows(), b.Names())

	for _, e := range []vexpr.Expr{statusLabel(), discount()} {
		program, err := engine.Compile(e, vexpr.Schema{Names: b.Names(), Types: b.Schema()})
		if err != nil {
			return err
		}
		fmt.Println(program)

		col, err := engine.Run(ctx, program, b)
		if err != nil {
			return err
		}
		fmt.Printf("=> %s %v\n\n", program.OutputType(), series.Values(col))
		col.Release()
	}
	return nil
}

func runBenchmark(engine *vexpr.Engine, rows int) error {
	if rows <= 0 {
		rows = defaultBenchmarkRows
	}
	ctx := context.Background()
	mem := memory.NewGoAllocator()

	b, err := sampleBatch(rows, 0, mem)
	if err != nil {
		return err
	}
	defer b.Release()

	perBatch := max(rows/benchmarkBatches, 1)
	batches := make([]*vexpr.Batch, benchmarkBatches)
	for i := range batches {
		batches[i], err = sampleBatch(perBatch, i*perBatch, mem)
		if err != nil {
			return err
		}
		defer batches[i].Release()
	}

	wide := vexpr.CaseOf(vexpr.Col("status"))
	for i := range 32 {
		wide = wide.When(vexpr.Lit(i), vexpr.Lit(fmt.Sprintf("s%d", i)))
	}

	evaluate := func(e vexpr.Expr) func() error {
		return func() error {
			col, err := engine.Evaluate(ctx, e, b)
			if err != nil {
				return err
			}
			col.Release()
			return nil
		}
	}

	suite := monitoring.NewBenchmarkSuite()
	suite.AddScenario(monitoring.BenchmarkScenario{Name: "multiIf", Rows: rows, Operation: evaluate(discount())})
	suite.AddScenario(monitoring.BenchmarkScenario{Name: "caseWithExpression (scan)", Rows: rows, Operation: evaluate(statusLabel())})
	suite.AddScenario(monitoring.BenchmarkScenario{Name: "caseWithExpression (hash)", Rows: rows, Operation: evaluate(wide.Else(vexpr.Lit("other")))})
	suite.AddScenario(monitoring.BenchmarkScenario{
		Name: "caseWithExpression (batches)",
		Rows: perBatch * benchmarkBatches,
		Operation: func() error {
			cols, err := engine.EvaluateBatches(ctx, statusLabel(), batches)
			if err != nil {
				return err
			}
			for _, c := range cols {
				c.Release()
			}
			return nil
		},
	})

	suite.Run()
	fmt.Print(suite.GenerateReport())
	return nil
}

func serveMetrics(collector *monitoring.MetricsCollector, addr string, logger *slog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := monitoring.NewMonitoringServer(collector, addr)
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	logger.Info("serving metrics", slog.String("addr", addr))
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server", slog.Any("error", err))
	}
}
