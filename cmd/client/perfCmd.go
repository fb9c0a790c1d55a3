package client

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dSock/cmd/util"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dSock servers",
		Long:    "Sends requests from several goroutines to an echo server and reports latency percentiles and throughput.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfCount       = 10000
	perfConcurrency = 10
	perfPayloadSize = 64
)

// perfResult holds the measurements of one perf run
type perfResult struct {
	timer    gometrics.Timer
	errors   gometrics.Counter
	duration time.Duration
}

func init() {
	// add flags
	key := "count"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Total number of requests to send"))
	key = "concurrency"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines sending requests"))
	key = "payload-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("Size of the payload of every request (in bytes)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfCount = viper.GetInt("count")
	perfConcurrency = viper.GetInt("concurrency")
	perfPayloadSize = viper.GetInt("payload-size")

	if perfCount <= 0 || perfConcurrency <= 0 {
		return fmt.Errorf("count and concurrency must be positive")
	}
	if perfPayloadSize < 0 {
		return fmt.Errorf("payload size must not be negative")
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for dSock servers")

	// Print configuration
	opts, err := util.GetSocketOptions()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  %-22s: %s (%s)\n", "Endpoint", viper.GetString("endpoint"), viper.GetString("transport"))
	fmt.Printf("  %-22s: %s\n", "Timeout", opts.Timeout)
	fmt.Printf("  %-22s: %d\n", "Requests", perfCount)
	fmt.Printf("  %-22s: %d\n", "Concurrency", perfConcurrency)
	fmt.Printf("  %-22s: %d bytes\n", "Payload", perfPayloadSize)
	fmt.Println()

	fmt.Println("starting test...")
	result := benchmark(strings.Repeat("x", perfPayloadSize))
	printResult(result)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultToCSV(csvPath, result); err != nil {
			return err
		}
	}

	return nil
}

// benchmark sends perfCount requests from perfConcurrency goroutines
func benchmark(payload string) perfResult {
	result := perfResult{
		timer:  gometrics.NewTimer(),
		errors: gometrics.NewCounter(),
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < perfConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for next.Add(1) <= int64(perfCount) {
				reqStart := time.Now()
				if _, err := socket.Request(context.Background(), payload); err != nil {
					result.errors.Inc(1)
					log.Debugf("(perf) - request failed: %v", err)
					continue
				}
				result.timer.UpdateSince(reqStart)
			}
		}()
	}

	wg.Wait()
	result.duration = time.Since(start)
	return result
}

func printResult(r perfResult) {
	ps := r.timer.Percentiles([]float64{0.5, 0.95, 0.99})
	opsPerSec := float64(r.timer.Count()) / r.duration.Seconds()

	fmt.Printf("%-20s%d (%d errors)\n", "requests", r.timer.Count(), r.errors.Count())
	fmt.Printf("%-20s%s\n", "duration", r.duration)
	fmt.Printf("%-20s%.0f ops/sec\n", "throughput", opsPerSec)
	fmt.Printf("%-20s%s\n", "mean", time.Duration(r.timer.Mean()))
	fmt.Printf("%-20s%s\n", "p50", time.Duration(ps[0]))
	fmt.Printf("%-20s%s\n", "p95", time.Duration(ps[1]))
	fmt.Printf("%-20s%s\n", "p99", time.Duration(ps[2]))
	fmt.Printf("%-20s%s\n", "max", time.Duration(r.timer.Max()))
}

// writeResultToCSV writes the benchmark result to a CSV file
func writeResultToCSV(csvPath string, r perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Requests", "Errors", "DurationMs", "OpsPerSec",
		"MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs",
		"Endpoint", "Transport", "Concurrency", "PayloadSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	ps := r.timer.Percentiles([]float64{0.5, 0.95, 0.99})
	row := []string{
		strconv.FormatInt(r.timer.Count(), 10),
		strconv.FormatInt(r.errors.Count(), 10),
		strconv.FormatInt(r.duration.Milliseconds(), 10),
		fmt.Sprintf("%.0f", float64(r.timer.Count())/r.duration.Seconds()),
		fmt.Sprintf("%.0f", r.timer.Mean()),
		fmt.Sprintf("%.0f", ps[0]),
		fmt.Sprintf("%.0f", ps[1]),
		fmt.Sprintf("%.0f", ps[2]),
		strconv.FormatInt(r.timer.Max(), 10),
		viper.GetString("endpoint"),
		viper.GetString("transport"),
		strconv.Itoa(perfConcurrency),
		strconv.Itoa(perfPayloadSize),
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %v", err)
	}
	return nil
}
