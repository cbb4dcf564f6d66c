package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	wasmhost "github.com/embedwasm/wasm-host"
	"github.com/embedwasm/wasm-host/engine"
	"github.com/embedwasm/wasm-host/runtime"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to wasm module")
		funcName    = flag.String("func", "", "Function to call")
		argsFlag    = flag.String("args", "", "u32 arguments (comma-separated)")
		poolSize    = flag.Uint("pool", 0, "Global heap pool size (0 = default/config)")
		stackSize   = flag.Uint("stack", 0, "Execution stack size (0 = default/config)")
		heapSize    = flag.Uint("heap", 0, "Module heap size (0 = default/config)")
		threadStack = flag.Uint("thread-stack", 0, "Worker stack size for safe calls (0 = default/config)")
		rawPath     = flag.Bool("raw", false, "Call directly, skipping the worker dispatch")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		configFile  = flag.String("config", "", "YAML config file")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> -func name [-args 1,2] [-raw]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			engine.SetLogger(log)
			defer log.Sync()
		}
	}

	cfg := defaultConfig()
	if *configFile != "" {
		fileCfg, err := loadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.merge(fileCfg)
	}
	cfg.override(uint32(*poolSize), uint32(*stackSize), uint32(*heapSize), uint32(*threadStack))

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *funcName, *argsFlag, *rawPath, *list, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, funcName, argsFlag string, rawPath, list bool, cfg *config) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return err
	}

	if cfg.ThreadStackSize > 0 {
		runtime.SetThreadStackSize(cfg.ThreadStackSize)
	}

	if err := runtime.Begin(ctx, cfg.PoolSize); err != nil {
		return err
	}
	defer runtime.End(ctx)

	mod := runtime.NewModule()
	defer mod.Close(ctx)

	if err := mod.Load(ctx, data, cfg.StackSize, cfg.HeapSize); err != nil {
		return err
	}

	if list {
		for _, exp := range mod.Exports() {
			fmt.Printf("%s  (params: %d, results: %d)\n",
				exp.Name, exp.ParamCount, exp.ResultCount)
		}
		return nil
	}

	if funcName == "" {
		return fmt.Errorf("no function given; use -func or -list")
	}

	argv, err := parseArgs(argsFlag)
	if err != nil {
		return err
	}

	if rawPath {
		err = mod.CallFunctionRaw(ctx, funcName, argv)
	} else {
		err = mod.CallFunction(ctx, funcName, argv)
	}
	if err != nil {
		return fmt.Errorf("%w (%s)", err, mod.Err())
	}

	if len(argv) > 0 {
		fmt.Printf("%s => %d\n", funcName, argv[0])
	} else {
		fmt.Printf("%s => ok\n", funcName)
	}
	return nil
}

// parseArgs converts "1,2,3" into argument slots. Calls to functions
// with results need at least one slot, so a bare result slot is added
// when no arguments are given.
func parseArgs(s string) ([]uint32, error) {
	if strings.TrimSpace(s) == "" {
		return []uint32{0}, nil
	}
	parts := strings.Split(s, ",")
	argv := make([]uint32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		argv[i] = uint32(v)
	}
	return argv, nil
}

// config is the effective sizing configuration after file and flag
// merging.
type config struct {
	PoolSize        uint32
	StackSize       uint32
	HeapSize        uint32
	ThreadStackSize uint32
}

func defaultConfig() *config {
	return &config{PoolSize: wasmhost.DefaultHeapPoolSize}
}

func (c *config) merge(f *fileConfig) {
	if f.PoolSize > 0 {
		c.PoolSize = f.PoolSize
	}
	if f.StackSize > 0 {
		c.StackSize = f.StackSize
	}
	if f.HeapSize > 0 {
		c.HeapSize = f.HeapSize
	}
	if f.ThreadStackSize > 0 {
		c.ThreadStackSize = f.ThreadStackSize
	}
}

func (c *config) override(pool, stack, heap, threadStack uint32) {
	if pool > 0 {
		c.PoolSize = pool
	}
	if stack > 0 {
		c.StackSize = stack
	}
	if heap > 0 {
		c.HeapSize = heap
	}
	if threadStack > 0 {
		c.ThreadStackSize = threadStack
	}
}
