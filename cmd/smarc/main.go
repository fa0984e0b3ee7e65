// Package main provides the SMARC testbench CLI: it builds a tile SoC
// (tile core, DRAM behind a timed port, array-sum accelerator), loads a
// flat RV32 binary, and runs it under the debugger or for a fixed number
// of cycles.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/emilitronic/smarc/accel"
	"github.com/emilitronic/smarc/debugger"
	"github.com/emilitronic/smarc/internal/logging"
	"github.com/emilitronic/smarc/loader"
	"github.com/emilitronic/smarc/mem"
	"github.com/emilitronic/smarc/tile"
)

// DRAMBase maps port address 0 into the DRAM window, matching the SoC
// bring-up memory map.
const DRAMBase = 0x80000000

var (
	prog         = flag.String("prog", "", "Path to flat binary file (.bin) to load")
	loadAddr     = flag.Uint("load_addr", 0, "Physical load address for the flat binary")
	startPC      = flag.Uint("start_pc", 0, "Initial PC (set core's PC before run)")
	steps        = flag.Int("steps", 0, "Cycles to auto-run; <=0 enters interactive debugger")
	swThreads    = flag.Int("sw_threads", 1, "Software thread contexts to schedule (1 or 2)")
	showContexts = flag.Bool("showcontexts", false, "List component instance names (contexts) and exit")
	ignoreBPFile = flag.Bool("ignore_bpfile", false, "Do not load "+debugger.BreakpointFile+" breakpoint file on startup")
	latency      = flag.Int("latency", 2, "Memory latency in cycles for the timed port")
	memModel     = flag.String("memmodel", "timed", "Fetch/data path model: timed or ideal")
	memPortKind  = flag.String("memport", "timed", "Memory port flavor: direct, timed, or ctrl")
	dramSize     = flag.Int("dram_size", mem.DefaultDRAMSize, "DRAM capacity in bytes")
	logLevel     = flag.String("loglevel", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	configureLogging(*logLevel)

	if *showContexts {
		fmt.Println("tile0")
		fmt.Println("dram0")
		fmt.Println("accel0")
		return
	}

	dram := mem.NewDRAM(*dramSize, DRAMBase)
	dramPort := mem.NewDRAMPort(dram)

	var port mem.Port
	switch *memPortKind {
	case "direct":
		port = dramPort
	case "timed":
		port = mem.NewTimedPort(dramPort, *latency)
	case "ctrl":
		port = mem.NewCtrlPort(dramPort, *latency)
	default:
		fmt.Fprintf(os.Stderr, "unknown memory port flavor %q\n", *memPortKind)
		os.Exit(1)
	}

	var opts []tile.Option
	switch *memModel {
	case "timed":
	case "ideal":
		opts = append(opts, tile.WithMemModel(tile.MemIdeal))
	default:
		fmt.Fprintf(os.Stderr, "unknown memory model %q\n", *memModel)
		os.Exit(1)
	}

	core := tile.NewTile(opts...)
	core.AttachMemory(port)
	core.AttachAccelerator(accel.NewArraySum(port))

	if *prog != "" {
		nbytes, err := loader.LoadFlatBin(*prog, port, uint32(*loadAddr))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Program load failed: %v\n", err)
			os.Exit(1)
		}
		logging.Default().Infof("loaded %d bytes at 0x%08x", nbytes, uint32(*loadAddr))
	} else {
		loadDemoProgram(port, uint32(*loadAddr))
	}
	if uint32(*startPC) != 0 {
		core.SetPC(uint32(*startPC))
	}

	dbg := debugger.NewState(core, port, *swThreads)
	if *steps > 0 {
		debugger.AutoRun(dbg, *steps)
	} else {
		debugger.RunREPL(dbg, os.Stdin, os.Stdout, *ignoreBPFile)
	}

	if dbg.ProgramExited {
		fmt.Printf("[EXIT] Program exited with code %d\n", core.ExitCode())
		fmt.Printf("[STATS] inst=%d alu=%d add=%d mul=%d loads=%d stores=%d branches=%d taken=%d\n",
			core.InstCount(), core.ArithCount(), core.AddCount(), core.MulCount(),
			core.LoadCount(), core.StoreCount(), core.BranchCount(), core.BranchTakenCount())
		return
	}
	if dbg.UserQuit {
		return
	}

	if err := debugger.VerifyPostmortem(dbg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// loadDemoProgram seeds a small array at 0x100 and a program that sums it
// through the custom-0 accelerator, then exits with the sum.
func loadDemoProgram(port mem.Port, base uint32) {
	const arrayBase = 0x00000100
	for i, v := range []uint32{1, 2, 3, 4} { // sum = 10
		port.Write32(arrayBase+uint32(i)*4, v)
	}
	program := []uint32{
		0x10000093, // addi x1, x0, 256   ; x1 = array base
		0x00400113, // addi x2, x0, 4     ; x2 = length in words
		0x0020818B, // custom0 x3, x1, x2 ; x3 = sum(arr[0..3]) = 10
		0x00018533, // add  x10, x3, x0   ; a0 = sum (exit code)
		0x05D00893, // addi x17, x0, 93   ; a7 = exit syscall
		0x00000073, // ecall              ; exit(a0)
	}
	addr := base
	for _, w := range program {
		port.Write32(addr, w)
		addr += 4
	}
}

func configureLogging(level string) {
	cfg := logging.DefaultConfig()
	switch level {
	case "debug":
		cfg.Level = logging.LevelDebug
	case "info":
		cfg.Level = logging.LevelInfo
	case "warn":
		cfg.Level = logging.LevelWarn
	case "error":
		cfg.Level = logging.LevelError
	}
	logging.SetDefault(logging.NewLogger(cfg))
}
