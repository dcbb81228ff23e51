package container

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/xceiver/cmd/util"
	"github.com/ValentinKolb/xceiver/rpc/client"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for datanodes",
		Long:    "Runs each workload with concurrent workers sharing one client. The number of requests in flight is bounded by --max-outstanding.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfWorkloads   = []string{"echo", "put", "put-large", "read", "mixed"}
	perfRequests    = 10000
	perfWorkers     = 16
	perfValueSize   = 1024
	perfLargeSizeKB = 100
	perfChunks      = 100
	perfContainerID uint64 = 1
	perfSkip        = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Workloads to skip (comma separated - e.g. put,read)"))
	key = "requests"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Number of requests per workload"))
	key = "workers"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("Number of concurrent workers sharing the client"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 1024, util.WrapString("Size of the chunk written by the put workload (in bytes)"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("Size of the chunk written by the put-large workload (in KB)"))
	key = "chunks"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different local ids the workloads use"))
	key = "container"
	perfTestCmd.Flags().Uint64(key, 1, util.WrapString("Container the chunks are written to"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfRequests = viper.GetInt("requests")
	perfWorkers = viper.GetInt("workers")
	perfValueSize = viper.GetInt("value-size")
	perfLargeSizeKB = viper.GetInt("large-value-size")
	perfChunks = viper.GetInt("chunks")
	perfContainerID = viper.GetUint64("container")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfRequests <= 0 || perfWorkers <= 0 || perfChunks <= 0 {
		return fmt.Errorf("requests, workers and chunks must be > 0")
	}
	if perfContainerID == 0 {
		return fmt.Errorf("container id 0 is reserved")
	}
	return nil
}

// perfResult is the outcome of one workload
type perfResult struct {
	workload string
	skipped  bool
	elapsed  time.Duration
	errors   int64
	timer    gometrics.Timer
}

func runPerf(cmd *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for datanodes")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Pipeline: %s\n", xceiverClient.GetPipeline())
	fmt.Printf("Workers: %d\n", perfWorkers)
	fmt.Println()

	fmt.Println("starting tests...")

	ctx := cmd.Context()
	value := make([]byte, perfValueSize)
	largeValue := make([]byte, perfLargeSizeKB*1024)

	var results []perfResult
	for _, workload := range perfWorkloads {
		var op func(ctx context.Context, i int) error

		switch workload {
		case "echo":
			op = func(ctx context.Context, _ int) error {
				_, err := client.Echo(ctx, xceiverClient, value)
				return err
			}
		case "put":
			op = func(ctx context.Context, i int) error {
				return client.PutChunk(ctx, xceiverClient, perfContainerID, localID(i), value)
			}
		case "put-large":
			op = func(ctx context.Context, i int) error {
				return client.PutChunk(ctx, xceiverClient, perfContainerID, localID(i), largeValue)
			}
		case "read":
			op = func(ctx context.Context, i int) error {
				_, err := client.ReadChunk(ctx, xceiverClient, perfContainerID, localID(i))
				return err
			}
		case "mixed":
			op = func(ctx context.Context, i int) error {
				var err error
				switch i % 4 {
				case 0, 1:
					_, err = client.ReadChunk(ctx, xceiverClient, perfContainerID, localID(i))
				case 2:
					err = client.PutChunk(ctx, xceiverClient, perfContainerID, localID(i), value)
				case 3:
					_, err = client.ListChunks(ctx, xceiverClient, perfContainerID)
				}
				return err
			}
		}

		if shouldSkip(workload) {
			results = append(results, perfResult{workload: workload, skipped: true})
			printResult(results[len(results)-1])
			continue
		}

		// reads need existing chunks
		if workload == "read" || workload == "mixed" {
			if err := fillChunks(ctx, value); err != nil {
				return err
			}
		}

		result, err := runWorkload(ctx, workload, op)
		if err != nil {
			return err
		}
		results = append(results, result)
		printResult(result)
	}

	cleanupChunks(ctx)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runWorkload runs perfRequests operations on perfWorkers goroutines and records every latency
func runWorkload(ctx context.Context, workload string, op func(ctx context.Context, i int) error) (perfResult, error) {
	result := perfResult{workload: workload, timer: gometrics.NewTimer()}
	defer result.timer.Stop()

	var next atomic.Int64
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()

	for w := 0; w < perfWorkers; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= perfRequests {
					return nil
				}

				opStart := time.Now()
				err := op(gctx, i)
				result.timer.UpdateSince(opStart)

				if err != nil {
					failed.Add(1)
					util.Logger.Debugf("(%s) - request %d failed: %v", workload, i, err)
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
			}
		})
	}

	err := g.Wait()
	result.elapsed = time.Since(start)
	result.errors = failed.Load()
	return result, err
}

// fillChunks writes every chunk used by the workloads once
func fillChunks(ctx context.Context, value []byte) error {
	for i := 0; i < perfChunks; i++ {
		if err := client.PutChunk(ctx, xceiverClient, perfContainerID, localID(i), value); err != nil {
			return fmt.Errorf("failed to prepare chunk %d: %w", localID(i), err)
		}
	}
	return nil
}

// cleanupChunks deletes the chunks written by the workloads
func cleanupChunks(ctx context.Context) {
	for i := 0; i < perfChunks; i++ {
		// chunks of skipped workloads may not exist
		_ = client.DeleteChunk(ctx, xceiverClient, perfContainerID, localID(i))
	}
}

// localID maps a request index to one of the perfChunks local ids (starting at 1)
func localID(i int) uint64 {
	return uint64(i%perfChunks) + 1
}

func shouldSkip(workload string) bool {
	for _, skip := range perfSkip {
		if workload == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// opsPerSec returns the throughput of a workload
func (r perfResult) opsPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.elapsed.Seconds()
}

// printResult prints the result of a workload in a formatted way
func printResult(r perfResult) {
	if r.skipped {
		fmt.Printf("%-12sskipped\n", r.workload)
		return
	}

	ps := r.timer.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-12s%.0f ops/sec\tp50 %s\tp95 %s\tp99 %s\tmax %s\terrors %d\n",
		r.workload,
		r.opsPerSec(),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		time.Duration(r.timer.Max()),
		r.errors,
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()

	// Write header
	header := []string{
		"Workload", "Skipped", "Requests", "Errors", "OpsPerSec", "P50", "P95", "P99", "Max",
		"Pipeline", "MaxOutstanding", "TimeoutSec", "Serializer", "Transport",
		"Workers", "ValueSize", "Chunks",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		row := []string{r.workload, strconv.FormatBool(r.skipped)}
		if r.skipped {
			row = append(row, "0", "0", "0", "", "", "", "")
		} else {
			ps := r.timer.Percentiles([]float64{0.5, 0.95, 0.99})
			row = append(row,
				strconv.FormatInt(r.timer.Count(), 10),
				strconv.FormatInt(r.errors, 10),
				fmt.Sprintf("%.0f", r.opsPerSec()),
				time.Duration(ps[0]).String(),
				time.Duration(ps[1]).String(),
				time.Duration(ps[2]).String(),
				time.Duration(r.timer.Max()).String(),
			)
		}
		row = append(row,
			xceiverClient.GetPipeline().ID(),
			strconv.Itoa(config.MaxOutstandingRequests),
			strconv.Itoa(config.TimeoutSecond),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfWorkers),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfChunks),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for workload %s: %v", r.workload, err)
		}
	}

	return nil
}
