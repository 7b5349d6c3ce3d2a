package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xhd2015/dlv-autobreak/debug"
	"github.com/xhd2015/dlv-autobreak/debug/common"
	"github.com/xhd2015/dlv-autobreak/debug/dap"
	"github.com/xhd2015/dlv-autobreak/debug/headless"
	"github.com/xhd2015/dlv-autobreak/debug/headless/headless_ext"
	"github.com/xhd2015/dlv-autobreak/log"
	"github.com/xhd2015/dlv-autobreak/provision"
)

// install: go install ./cmd/dlv-autobreak
const help = `
dlv-autobreak attach a configured breakpoint list to a debug session at startup

Usage: dlv-autobreak [OPTIONS] [file:line ...]

Breakpoints are taken from the command line operands, or if none are given,
from --breakpoints, the ` + provision.EnvBreakpoints + ` environment
variable, or --breakpoints-file, in that order.

Available commands:
  help                               show help message

Options:
  --debugger <debugger>              Type of debugger to use: 'headless'(default) or 'dap'
  --mode <mode>                      'remote'(default) attaches to a running server; 'debug', 'exec' and 'test' launch one
  --addr <addr>                      Debug server address (default: 127.0.0.1:54321)
  --program <path>                   Program to debug, required for non-remote modes
  --breakpoints <list>               Comma-separated file:line list
  --breakpoints-file <path>          File with one file:line per line, '#' comments allowed
  --reset                            Clear the engine's breakpoint table before provisioning (headless only)
  --verify                           Print the engine's breakpoint table after provisioning (headless only)
  --log-file <path>                  Append logs to path (default: ~/.dlv-autobreak/dlv-autobreak.log)
  --help   show help message
`

type options struct {
	debugger        string
	mode            string
	addr            string
	program         string
	breakpoints     string
	breakpointsFile string
	reset           bool
	verify          bool
	logFile         string
	operands        []string
}

func main() {
	if err := handle(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (*options, bool, error) {
	opts := &options{}
	n := len(args)
	for i := 0; i < n; i++ {
		arg := args[i]
		switch arg {
		case "help", "-h", "--help":
			return nil, true, nil
		case "--debugger", "--mode", "--addr", "--program", "--breakpoints", "--breakpoints-file", "--log-file":
			if i+1 >= n {
				return nil, false, fmt.Errorf("%s requires arg", arg)
			}
			value := args[i+1]
			i++
			switch arg {
			case "--debugger":
				opts.debugger = value
			case "--mode":
				opts.mode = value
			case "--addr":
				opts.addr = value
			case "--program":
				opts.program = value
			case "--breakpoints":
				opts.breakpoints = value
			case "--breakpoints-file":
				opts.breakpointsFile = value
			case "--log-file":
				opts.logFile = value
			}
		case "--reset":
			opts.reset = true
		case "--verify":
			opts.verify = true
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, false, fmt.Errorf("unknown flag: %s", arg)
			}
			opts.operands = append(opts.operands, arg)
		}
	}

	if opts.debugger == "" {
		opts.debugger = "headless"
	}
	if opts.mode == "" {
		opts.mode = "remote"
	}
	return opts, false, nil
}

// loadSpecs picks the first spec source that yields anything:
// operands, --breakpoints, environment, --breakpoints-file.
func loadSpecs(opts *options) ([]provision.BreakpointSpec, error) {
	if len(opts.operands) > 0 {
		return provision.ArgsSource(opts.operands).Specs()
	}
	if opts.breakpoints != "" {
		return provision.ParseSpecList(opts.breakpoints)
	}
	specs, err := provision.EnvSource{}.Specs()
	if err != nil {
		return nil, err
	}
	if len(specs) > 0 {
		return specs, nil
	}
	if opts.breakpointsFile != "" {
		return provision.FileSource(opts.breakpointsFile).Specs()
	}
	return nil, nil
}

func handle(args []string) error {
	opts, showHelp, err := parseArgs(args)
	if showHelp {
		fmt.Println(strings.TrimSpace(help))
		return nil
	}
	if err != nil {
		return err
	}

	specs, err := loadSpecs(opts)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no breakpoints configured, see dlv-autobreak --help")
	}

	logger, closeLog, err := newFileLogger(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	if opts.mode != "remote" {
		if opts.program == "" {
			return fmt.Errorf("--program is required for mode %q", opts.mode)
		}
		// Convert relative path to absolute
		if !filepath.IsAbs(opts.program) {
			absPath, err := filepath.Abs(opts.program)
			if err != nil {
				return fmt.Errorf("failed to get absolute path: %w", err)
			}
			opts.program = absPath
		}
	}

	launchAddr := ""
	if opts.mode != "remote" {
		launchAddr = opts.addr
	}
	sessionManager, err := debug.NewSessionManager(opts.debugger, launchAddr, logger)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	session, err := sessionManager.NewSession(opts.program, nil, opts.mode)
	if err != nil {
		return fmt.Errorf("failed to start debug session: %w", err)
	}

	if opts.mode == "remote" {
		addr := opts.addr
		if addr == "" {
			if opts.debugger == "dap" {
				addr = dap.DefaultListenAddr
			} else {
				addr = headless.DefaultListenAddr
			}
		}
		if err := session.ConnectRemote(context.Background(), addr); err != nil {
			return err
		}
	}

	return provisionSession(session, specs, opts, logger)
}

// provisionSession is the initialization hook proper: with the engine
// confirmed reachable, it registers the configured breakpoints, prints the
// confirmation line, and hands the breakpoint table back to the operator.
func provisionSession(session common.Session, specs []provision.BreakpointSpec, opts *options, logger log.Logger) error {
	if opts.reset {
		if opts.debugger != "headless" {
			return fmt.Errorf("--reset requires the headless debugger")
		}
		cleared, err := headless_ext.ClearAllBreakpoints(session)
		if err != nil {
			return err
		}
		logger.Infof("cleared %d existing breakpoints", cleared)
	}

	handles, provErr := provision.Provision(session, specs)

	// Breakpoints registered before a failure stay registered, so the
	// confirmation line covers them either way
	if err := provision.Report(os.Stdout, handles); err != nil {
		logger.Errorf("failed to write report: %v", err)
	}
	if provErr != nil {
		return provErr
	}

	if opts.verify {
		if opts.debugger != "headless" {
			return fmt.Errorf("--verify requires the headless debugger")
		}
		breakpoints, err := headless_ext.ListBreakpoints(session)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stderr, headless_ext.FormatBreakpoints(breakpoints))
	}

	logger.Infof("provisioned %d breakpoints via %s session %s", len(handles), opts.debugger, session.GetID())

	// The engine's breakpoint table now belongs to the operator
	if err := session.Detach(); err != nil {
		logger.Warnf("detach failed: %v", err)
	}
	return nil
}
