// Package cli builds the moxie command line interface. It is adapted
// from the teacher repository's Cobra-based CLI, stripped to a single
// process: --mode and --master are gone along with the distributed
// control plane they drove, since this scheduler has no remote
// coordination surface (see the distributed-coordination Non-goal).
package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/russellklenk/moxie/internal/diagnostics"
	"github.com/russellklenk/moxie/internal/metrics"
	"github.com/russellklenk/moxie/internal/tracelog"
	"github.com/russellklenk/moxie/pkg/scheduler"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the complete moxie configuration, loaded from YAML.
type Config struct {
	Scheduler struct {
		SlotCount      int `yaml:"slot_count"`
		BufferJobCount int `yaml:"buffer_job_count"`
		BufferSize     int `yaml:"buffer_size"`
		MaxWaiters     int `yaml:"max_waiters"`
		MaxQueues      int `yaml:"max_queues"`
		ContextCount   int `yaml:"context_count"`
	} `yaml:"scheduler"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	TraceLog struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"trace_log"`

	Diagnostics struct {
		Enabled         bool   `yaml:"enabled"`
		Path            string `yaml:"path"`
		IntervalSeconds int    `yaml:"interval_seconds"`
	} `yaml:"diagnostics"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

var configFile string

// BuildCLI assembles the root moxie command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "moxie",
		Short: "moxie: a fine-grained, dependency-tracking job scheduler",
		Long: `moxie schedules fine-grained, dependency-constrained jobs across a
fixed pool of worker goroutines, using a generational slot table and a
bounded ready queue per worker group.`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")
	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildStatusCommand())
	return rootCmd
}

func buildRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start a scheduler and a worker pool, then submit the demo workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem()
		},
	}
}

func runSystem() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	schedCfg := schedulerConfigFrom(cfg)
	sched, err := scheduler.New(schedCfg)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	defer sched.Close()

	// Queue capacity is always the scheduler's slot count (see
	// scheduler.RegisterQueue); there is no independently configured
	// queue_capacity setting to pass through here.
	queue, err := sched.RegisterQueue(0, cfg.Workers.Count)
	if err != nil {
		return fmt.Errorf("failed to register queue: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		go func() {
			log.Printf("starting metrics server on :%d\n", cfg.Metrics.Port)
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				log.Printf("metrics server error: %v\n", err)
			}
		}()

		stop := make(chan struct{})
		defer close(stop)
		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					stats := sched.Stats()
					for id, depth := range stats.QueueDepths {
						collector.SetQueueDepth(id, depth)
					}
					collector.SetPoolStats(stats.BuffersInUse, stats.ContextsInUse)
				case <-stop:
					return
				}
			}
		}()
	}

	var trace *tracelog.Log
	if cfg.TraceLog.Enabled {
		trace, err = tracelog.NewLog(cfg.TraceLog.Path, false)
		if err != nil {
			return fmt.Errorf("failed to open trace log: %w", err)
		}
		defer trace.Close()
	}

	var exporter *diagnostics.Exporter
	if cfg.Diagnostics.Enabled {
		exporter = diagnostics.NewExporter(cfg.Diagnostics.Path, sched)
		exporter.Start(time.Duration(cfg.Diagnostics.IntervalSeconds) * time.Second)
		defer exporter.Stop()
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers.Count; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(sched, queue, scheduler.ThreadID(workerID+1), trace, collector)
		}(i)
	}

	log.Println("submitting demo workload")
	if err := submitDemoWorkload(sched, queue, trace, collector); err != nil {
		return fmt.Errorf("failed to submit demo workload: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("received shutdown signal, terminating queues")
	sched.Terminate()
	wg.Wait()
	log.Println("all workers exited")
	return nil
}

// runWorker is a worker goroutine's main loop: acquire a Context,
// repeatedly take the next ready job and run it to completion, until
// the queue is signaled. trace and collector are both optional (nil
// when their respective config sections are disabled).
func runWorker(sched *scheduler.Scheduler, queue *scheduler.Queue, thread scheduler.ThreadID, trace *tracelog.Log, collector *metrics.Collector) {
	ctx, err := sched.AcquireContext(queue, thread)
	if err != nil {
		log.Printf("worker %d: failed to acquire context: %v\n", thread, err)
		return
	}
	defer sched.ReleaseContext(ctx)

	for {
		job, ok := ctx.WaitReadyJob()
		if !ok {
			return
		}
		traceAppend(trace, tracelog.EventRunning, job.ID, thread, false)
		start := time.Now()
		job.Exit = job.Main(ctx, job, scheduler.CallExecute)
		ctx.CompleteJob(job)
		traceAppend(trace, tracelog.EventCompleted, job.ID, thread, false)
		if collector != nil {
			collector.RecordCompleted(time.Since(start).Seconds())
		}
	}
}

// submitDemoWorkload builds a small fan-out/fan-in job graph: several
// independent children, and a join job that depends on all of them,
// mirroring the fork-join dependency shape this scheduler is designed
// for. trace and collector are both optional.
func submitDemoWorkload(sched *scheduler.Scheduler, queue *scheduler.Queue, trace *tracelog.Log, collector *metrics.Collector) error {
	ctx, err := sched.AcquireContext(queue, scheduler.ThreadID(0))
	if err != nil {
		return err
	}
	defer sched.ReleaseContext(ctx)

	const fanOut = 4
	children := make([]scheduler.JobID, 0, fanOut)
	for i := 0; i < fanOut; i++ {
		n := i
		job, err := ctx.CreateJob(8, 8)
		if err != nil {
			return err
		}
		job.Main = func(c *scheduler.Context, j *scheduler.Descriptor, call scheduler.CallType) int32 {
			if call == scheduler.CallExecute {
				log.Printf("demo: child %d running on thread %d\n", n, c.ThreadID())
			}
			return 0
		}
		traceAppend(trace, tracelog.EventCreated, job.ID, ctx.ThreadID(), false)
		if collector != nil {
			collector.RecordCreated()
		}
		if _, err := ctx.SubmitJob(job, nil, scheduler.SubmitRun); err != nil {
			return err
		}
		traceAppend(trace, tracelog.EventSubmitted, job.ID, ctx.ThreadID(), false)
		if collector != nil {
			collector.RecordSubmitted()
		}
		children = append(children, job.ID)
	}

	join, err := ctx.CreateJob(0, 0)
	if err != nil {
		return err
	}
	join.Main = func(c *scheduler.Context, j *scheduler.Descriptor, call scheduler.CallType) int32 {
		if call == scheduler.CallExecute {
			log.Println("demo: join running, all children ready")
		}
		return 0
	}
	traceAppend(trace, tracelog.EventCreated, join.ID, ctx.ThreadID(), false)
	if collector != nil {
		collector.RecordCreated()
	}
	if _, err := ctx.SubmitJob(join, children, scheduler.SubmitRun); err != nil {
		return err
	}
	traceAppend(trace, tracelog.EventSubmitted, join.ID, ctx.ThreadID(), true)
	if collector != nil {
		collector.RecordSubmitted()
	}
	return nil
}

// traceAppend appends a trace event when trace is non-nil, logging rather
// than propagating a write failure: the trace log is a diagnostic aid, not
// a durability mechanism, and losing one event must not take a worker
// down.
func traceAppend(trace *tracelog.Log, kind tracelog.EventKind, id scheduler.JobID, thread scheduler.ThreadID, force bool) {
	if trace == nil {
		return
	}
	if err := trace.Append(kind, id, thread, force); err != nil {
		log.Printf("trace log append failed: %v\n", err)
	}
}

func buildStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show scheduler status: configuration and the last exported diagnostics snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
}

func showStatus() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("moxie status")
	fmt.Printf("  config file:      %s\n", configFile)
	fmt.Printf("  slot count:       %d\n", cfg.Scheduler.SlotCount)
	fmt.Printf("  worker count:     %d\n", cfg.Workers.Count)
	fmt.Printf("  queue capacity:   %d (fixed at slot count)\n", cfg.Scheduler.SlotCount)
	fmt.Printf("  trace log:        enabled=%t path=%s\n", cfg.TraceLog.Enabled, cfg.TraceLog.Path)
	fmt.Printf("  diagnostics:      enabled=%t path=%s\n", cfg.Diagnostics.Enabled, cfg.Diagnostics.Path)
	fmt.Printf("  metrics:          enabled=%t port=%d\n", cfg.Metrics.Enabled, cfg.Metrics.Port)

	if cfg.Diagnostics.Enabled {
		if body, err := os.ReadFile(cfg.Diagnostics.Path); err == nil {
			var snap diagnostics.Snapshot
			if err := json.Unmarshal(body, &snap); err == nil {
				fmt.Println()
				fmt.Println("last diagnostics snapshot:")
				fmt.Printf("  buffers in use:   %d/%d\n", snap.BuffersInUse, snap.BuffersTotal)
				fmt.Printf("  contexts in use:  %d/%d\n", snap.ContextsInUse, snap.ContextsTotal)
				fmt.Printf("  queue depths:     %v\n", snap.QueueDepths)
			}
		} else {
			fmt.Println()
			fmt.Println("no diagnostics snapshot written yet")
		}
	}
	return nil
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	def := scheduler.DefaultConfig()
	if cfg.Scheduler.SlotCount == 0 {
		cfg.Scheduler.SlotCount = def.SlotCount
	}
	if cfg.Scheduler.BufferJobCount == 0 {
		cfg.Scheduler.BufferJobCount = def.BufferJobCount
	}
	if cfg.Scheduler.BufferSize == 0 {
		cfg.Scheduler.BufferSize = int(def.BufferSize)
	}
	if cfg.Scheduler.MaxWaiters == 0 {
		cfg.Scheduler.MaxWaiters = int(def.MaxWaiters)
	}
	if cfg.Scheduler.MaxQueues == 0 {
		cfg.Scheduler.MaxQueues = def.MaxQueues
	}
	if cfg.Scheduler.ContextCount == 0 {
		cfg.Scheduler.ContextCount = def.ContextCount
	}
	if cfg.Workers.Count == 0 {
		cfg.Workers.Count = 4
	}
	if cfg.Diagnostics.IntervalSeconds == 0 {
		cfg.Diagnostics.IntervalSeconds = 5
	}
}

func schedulerConfigFrom(cfg *Config) scheduler.Config {
	return scheduler.Config{
		SlotCount:      cfg.Scheduler.SlotCount,
		BufferJobCount: cfg.Scheduler.BufferJobCount,
		BufferSize:     uint32(cfg.Scheduler.BufferSize),
		MaxWaiters:     uint32(cfg.Scheduler.MaxWaiters),
		MaxQueues:      cfg.Scheduler.MaxQueues,
		ContextCount:   cfg.Scheduler.ContextCount,
	}
}
