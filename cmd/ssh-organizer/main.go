package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/api"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/cli"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/logging"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/manager"
)

var (
	flagAddr     string
	flagEmbedded bool
)

func init() {
	flag.StringVar(&flagAddr, "addr", "", "Listen address for serve (default from SSH_ORGANIZER_LISTEN_ADDR)")
	flag.BoolVar(&flagEmbedded, "embedded", false, "With pick: attach in this terminal instead of opening a new window")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ssh-organizer\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer [options] serve\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer list\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer [--embedded] pick\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer connect <id>\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer attach <id>\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer test <id>\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer copy <id>\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer import-ssh-config [path]\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer export [file]\n")
		fmt.Fprintf(os.Stderr, "  ssh-organizer import <file>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ssh-organizer: %v\n", err)
		os.Exit(1)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	var logCloser io.Closer
	if cmd == "serve" {
		logCloser, err = logging.Tee(settings.LogPath)
	} else {
		logCloser, err = logging.ToFile(settings.LogPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ssh-organizer: %v\n", err)
		os.Exit(1)
	}

	mgr, err := manager.Open(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ssh-organizer: %v\n", err)
		logCloser.Close()
		os.Exit(1)
	}

	code := run(mgr, settings, cmd, args)
	mgr.Close()
	logCloser.Close()
	os.Exit(code)
}

func run(mgr *manager.Manager, settings *config.Settings, cmd string, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "serve":
		addr := settings.ListenAddr
		if flagAddr != "" {
			addr = flagAddr
		}
		err = serve(ctx, mgr, addr)

	case "list":
		err = cli.RenderProfiles(os.Stdout, mgr.ListProfiles())

	case "pick":
		var choice *config.ConnectionProfile
		choice, err = cli.Pick(mgr.ListProfiles())
		if err == nil && choice != nil {
			if flagEmbedded {
				return attach(ctx, mgr, choice.ID)
			}
			err = report(mgr.Connect(ctx, choice.ID))
		}

	case "connect", "attach", "test", "copy":
		if len(args) != 1 {
			flag.Usage()
			return 2
		}
		id := args[0]
		switch cmd {
		case "connect":
			err = report(mgr.Connect(ctx, id))
		case "attach":
			return attach(ctx, mgr, id)
		case "test":
			p, found := mgr.GetProfile(id)
			if !found {
				err = fmt.Errorf("connection %q not found", id)
				break
			}
			err = report(mgr.TestConnection(ctx, p))
		case "copy":
			err = report(mgr.CopyCommand(id))
		}

	case "import-ssh-config":
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		err = report(mgr.ImportSSHConfig(path))

	case "export":
		out := os.Stdout
		if len(args) > 0 {
			f, ferr := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
			if ferr != nil {
				err = ferr
				break
			}
			defer f.Close()
			out = f
		}
		err = mgr.ExportProfiles(out)

	case "import":
		if len(args) != 1 {
			flag.Usage()
			return 2
		}
		f, ferr := os.Open(args[0])
		if ferr != nil {
			err = ferr
			break
		}
		defer f.Close()
		err = report(mgr.ImportProfiles(f))

	default:
		flag.Usage()
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ssh-organizer: %v\n", err)
		return 1
	}
	return 0
}

func report(res manager.Result) error {
	if !res.Success {
		return errors.New(res.Error)
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	return nil
}

func attach(ctx context.Context, mgr *manager.Manager, profileID string) int {
	a := &cli.Attacher{In: os.Stdin, Out: os.Stdout, Fd: int(os.Stdin.Fd())}
	fmt.Fprintln(os.Stderr, "Attached. Press Ctrl+] to detach.")
	code, err := a.Attach(ctx, mgr, profileID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ssh-organizer: %v\n", err)
		return 1
	}
	if code < 0 {
		return 0
	}
	return code
}

func serve(ctx context.Context, mgr *manager.Manager, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(mgr),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("[Server] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mgr.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
