// Command kernel is the cobra-based entry point spec section 4.11
// calls for: it parses boot flags and calls boot.Run. There is no
// bare-metal trampoline behind this binary (spec section 1 leaves
// that out of scope), so once boot succeeds the process just blocks
// forever -- a real deployment's assembly entry point would instead
// sit in an idle loop servicing hardware interrupts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boot"
	"logger"
)

func main() {
	var (
		memMB      int
		diskImage  string
		initBinary string
		timerHz    int
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "kernel",
		Short: "Boot the simulated preemptive kernel",
		Long: `kernel brings up the page-frame allocator, virtual memory, the
kernel heap, the process table, scheduler, signal manager, syscall
layer, and ATA driver, mounts a root file system off a disk image, and
launches the reserved init process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}
			_, err = boot.Run(boot.Config_t{
				MemBytes:   uintptr(memMB) * 1024 * 1024,
				DiskImage:  diskImage,
				InitBinary: initBinary,
				TimerHz:    timerHz,
				LogLevel:   level,
			})
			if err != nil {
				return err
			}
			select {}
		},
	}

	root.Flags().IntVar(&memMB, "mem", 32, "simulated physical memory, in MiB")
	root.Flags().StringVar(&diskImage, "disk", "disk.img", "path to the root file system image")
	root.Flags().StringVar(&initBinary, "init", "/init", "name of the init binary inside the disk image")
	root.Flags().IntVar(&timerHz, "timer-hz", 100, "timer interrupt frequency")
	root.Flags().StringVar(&logLevel, "log-level", "info", "one of debug, info, warn, fatal")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseLevel(s string) (logger.Level_t, error) {
	switch s {
	case "debug":
		return logger.LevelDebug, nil
	case "info":
		return logger.LevelInfo, nil
	case "warn":
		return logger.LevelWarn, nil
	case "fatal":
		return logger.LevelFatal, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
