// main.go - Command-line entry point for the hybrid cartridge console

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"golang.org/x/term"
	"golang.org/x/xerrors"
)

func boilerPlate(colour bool) {
	title := "HybridVCS - native Go logic driving an emulated 6507 through its own cartridge ROM"
	if colour {
		fmt.Printf("\n\033[38;2;255;20;147m%s\033[0m\n", title)
	} else {
		fmt.Printf("\n%s\n", title)
	}
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	var (
		configPath string
		routine    string
		script     string
		frames     uint64
		timeout    time.Duration
		statusDur  time.Duration
		trace      bool
		verbosity  int
		logFile    string
		dump       bool
		savePath   string
		loadPath   string
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default ./"+CONFIG_FILE_NAME+" if present)")
	flagSet.StringVar(&routine, "logic", "", fmt.Sprintf("built-in logic routine %v", BuiltinLogicNames()))
	flagSet.StringVar(&script, "script", "", "Lua logic script")
	flagSet.Uint64Var(&frames, "frames", 0, "stop after this many frames (0 = until the logic ends)")
	flagSet.DurationVar(&timeout, "handoff-timeout", 0, "bound on emulator waits for native logic")
	flagSet.DurationVar(&statusDur, "status", 0, "status line interval")
	flagSet.BoolVar(&trace, "trace", false, "log every emitted block (needs -v 2)")
	flagSet.IntVar(&verbosity, "v", 0, "log verbosity")
	flagSet.StringVar(&logFile, "log", "", "log file (default stderr)")
	flagSet.BoolVar(&dump, "dump", false, "disassemble the last block on exit")
	flagSet.StringVar(&savePath, "save", "", "write a save state on exit")
	flagSet.StringVar(&loadPath, "load", "", "replay a save state without native logic")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./hybridvcs [-logic rainbow|-script file.lua] [-frames n] [-save file] [-load file] [-dump]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	boilerPlate(isTTY)

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Flags given explicitly override the file
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "logic":
			cfg.Logic.Routine = routine
			cfg.Logic.Script = ""
		case "script":
			cfg.Logic.Script = script
		case "frames":
			cfg.Run.Frames = frames
		case "handoff-timeout":
			cfg.Bridge.HandoffTimeout = timeout.String()
		case "status":
			cfg.Run.StatusEvery = statusDur.String()
		case "trace":
			cfg.Bridge.Trace = trace
		case "v":
			cfg.Log.Verbosity = verbosity
		case "log":
			cfg.Log.File = logFile
		case "save":
			cfg.State.Save = savePath
		case "load":
			cfg.State.Load = loadPath
		}
	})

	configureLogging(cfg.Log.Verbosity, cfg.Log.File)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, dump, isTTY); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfigFile(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}
	if _, err := os.Stat(CONFIG_FILE_NAME); err == nil {
		return LoadConfig(CONFIG_FILE_NAME)
	}
	return DefaultConfig(), nil
}

func run(ctx context.Context, cfg *Config, dump, isTTY bool) error {
	bcfg, err := cfg.BridgeConfig()
	if err != nil {
		return err
	}
	statusEvery, err := cfg.StatusInterval()
	if err != nil {
		return err
	}

	var logic LogicFunc
	if cfg.State.Load == "" {
		if logic, err = cfg.LogicFunc(); err != nil {
			return err
		}
	}

	console := NewConsole(logic, bcfg)
	if err := console.Reset(ctx); err != nil {
		return err
	}
	if cfg.State.Load != "" {
		if err := loadStateFile(console, cfg.State.Load); err != nil {
			return err
		}
		fmt.Printf("Replaying %s\n", cfg.State.Load)
	}

	runErr := console.Run(ctx, RunOptions{
		Frames:      cfg.Run.Frames,
		StatusEvery: statusEvery,
		Status:      statusPrinter(isTTY),
	})
	if isTTY && statusEvery > 0 {
		fmt.Println()
	}
	if xerrors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	var dumpTo io.Writer
	if dump {
		dumpTo = os.Stdout
	}
	return finish(console, cfg.State.Save, dumpTo, runErr)
}

// finish stops the logic task, then dumps and saves the image. Nothing reads
// the image while a task that would not stop may still be writing it.
func finish(console *Console, savePath string, dump io.Writer, runErr error) error {
	closeErr := console.Close()
	if console.Bridge().stuckTask() {
		if runErr != nil {
			return runErr
		}
		return closeErr
	}

	if dump != nil {
		dumpBlock(dump, console)
	}
	if runErr == nil && savePath != "" {
		if err := saveStateFile(console, savePath); err != nil {
			runErr = err
		}
	}

	if runErr != nil {
		return runErr
	}
	return closeErr
}

func statusPrinter(isTTY bool) func(ConsoleStatus) {
	return func(s ConsoleStatus) {
		line := fmt.Sprintf("frames %d  syncs %d  instructions %d  cycles %d",
			s.Frames, s.Syncs, s.Instructions, s.Cycles)
		if isTTY {
			fmt.Printf("\r\033[2K\033[38;2;255;200;147m%s\033[0m", line)
			return
		}
		fmt.Println(line)
	}
}

// dumpBlock prints the block the CPU was last given, or with no logic
// attached, the image up to its first self-jump.
func dumpBlock(w io.Writer, console *Console) {
	block := console.Bridge().LastBlock()
	if len(block) == 0 {
		block = codeUntilSync(console.Cart.Image())
	}
	fmt.Fprintf(w, "; %d bytes at $%04X\n", len(block), HYBRID_BASE_ADDR)
	for _, line := range disassemble6507(block, HYBRID_BASE_ADDR) {
		fmt.Fprintf(w, "$%04X  %-8s  %s\n", line.Address, line.HexBytes, line.Mnemonic)
	}
}

func codeUntilSync(img []byte) []byte {
	for _, line := range disassemble6507(img[:HYBRID_CODE_LIMIT], HYBRID_BASE_ADDR) {
		if line.Mnemonic == fmt.Sprintf("JMP $%04X", HYBRID_BASE_ADDR) {
			return img[:int(line.Address-HYBRID_BASE_ADDR)+line.Size]
		}
	}
	return img[:HYBRID_CODE_LIMIT]
}

func saveStateFile(console *Console, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.Errorf("save state: %w", err)
	}
	if err := console.SaveState(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadStateFile(console *Console, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return xerrors.Errorf("load state: %w", err)
	}
	defer f.Close()
	return console.LoadState(f)
}
