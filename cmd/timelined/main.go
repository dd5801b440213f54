// Command timelined runs the resource timeline scheduler as a daemon.
// Requests arrive as newline-delimited JSON on stdin; responses leave the
// same way on stdout. Logs go to stderr or file, never stdout.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sprites20/barangay-proceedings/internal/app"
	"github.com/sprites20/barangay-proceedings/internal/dispatch"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}

	go serve(cancel, a.Dispatcher())

	<-ctx.Done()
	_ = a.Stop(context.Background())
}

// serve pumps requests from stdin until EOF, then shuts the daemon down.
func serve(cancel context.CancelFunc, d *dispatch.Dispatcher) {
	defer cancel()

	enc := json.NewEncoder(os.Stdout)
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var req dispatch.Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(dispatch.Response{OK: false, Error: "bad request: " + err.Error()})
			continue
		}
		_ = enc.Encode(d.Handle(req))
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "stdin:", err)
	}
}
