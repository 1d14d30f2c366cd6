// Command purc loads one HVML file, schedules it, and runs the event loop
// to quiescence, printing each coroutine's rendered EDOM as it terminates.
// Flag parsing keeps to a flat, stdlib-flag, one-subcommand shape narrowed
// to this module's single job: driving the purc library, not a
// multi-command toolchain.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	purc "github.com/purc-go/purc"
	"github.com/purc-go/purc/internal/fetcher"
	"github.com/purc-go/purc/internal/obslog"
)

func main() {
	baseURI := flag.String("base-uri", "", "base URI relative fetch targets resolve against")
	auditDB := flag.String("audit-db", "", "path to a sqlite audit database (use :memory: for a throwaway one); empty disables auditing")
	monitorAddr := flag.String("monitor-addr", "", "address to serve the live monitor websocket on (e.g. :8089); empty disables it")
	timeout := flag.Duration("fetch-timeout", 30*time.Second, "HTTP fetch timeout")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	logger := obslog.New(*debug)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: purc [flags] <file.hvml>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	inst := purc.New(fetcher.WithTimeout(*timeout))
	if *baseURI != "" {
		inst.SetBaseURI(*baseURI)
	}
	if *auditDB != "" {
		if err := inst.EnableAudit(*auditDB); err != nil {
			logger.Error("enable audit", "error", err)
			os.Exit(1)
		}
		defer inst.Close()
	}
	if *monitorAddr != "" {
		hub := inst.EnableMonitor()
		go func() {
			logger.Info("serving monitor", "addr", *monitorAddr)
			if err := http.ListenAndServe(*monitorAddr, hub); err != nil {
				logger.Error("monitor server", "error", err)
			}
		}()
	}

	vd, err := inst.LoadHVMLFromFile(path)
	if err != nil {
		logger.Error("load hvml", "path", path, "error", err)
		os.Exit(1)
	}

	cid, err := inst.ScheduleVdom(vd, nil)
	if err != nil {
		logger.Error("schedule vdom", "error", err)
		os.Exit(1)
	}
	logger.Debug("scheduled", "coroutine_id", cid)

	failed := false
	if err := inst.Run(func(r purc.Result) {
		if r.Except != nil {
			failed = true
			logger.Error("coroutine terminated with exception", "coroutine_id", r.CoroutineID, "error", r.Except)
			return
		}
		fmt.Println(r.Edom)
	}); err != nil {
		logger.Error("run", "error", err)
		os.Exit(1)
	}

	if failed {
		os.Exit(1)
	}
}
