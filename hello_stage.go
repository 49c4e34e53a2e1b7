package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/mogaika/hello_stage/config"
	"github.com/mogaika/hello_stage/hello"
	"github.com/mogaika/hello_stage/liveedit"
	"github.com/mogaika/hello_stage/stage"
	"github.com/mogaika/hello_stage/status"
	"github.com/mogaika/hello_stage/utils"
	"github.com/mogaika/hello_stage/web"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	} else if err != nil {
		os.Exit(2)
	}

	level := logrus.InfoLevel
	if cfg.Verbose {
		level = logrus.DebugLevel
	}
	log := utils.NewLogger("hello_stage", level)

	if err := run(cfg, log); err != nil {
		log.Fatal(err)
	}
}

func openStage(cfg *config.Config, log logrus.FieldLogger) (*stage.Stage, string, error) {
	if cfg.Existing != "" {
		hello.LogConnectedUsername(log, cfg.User)
		return hello.OpenExisting(cfg.Existing, log)
	}
	return hello.Build(hello.Options{Dir: cfg.Path, Live: cfg.Live, User: cfg.User}, log)
}

func run(cfg *config.Config, log logrus.FieldLogger) error {
	s, box, err := openStage(cfg, log)
	if err != nil {
		return err
	}

	hub := status.NewHub(log.WithField("component", "status"))
	defer hub.Close()
	s.Subscribe(hub.StageChanged)

	editor, err := liveedit.NewEditor(s, box, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errs := make(chan error, 2)
	if cfg.Addr != "" {
		srv := web.NewServer(s, hub, log.WithField("component", "web"))
		srv.EditLock = editor.Locker()
		go func() { errs <- srv.ListenAndServe(cfg.Addr) }()
	}

	if cfg.Watch != "" {
		w, err := liveedit.NewWatcher(cfg.Watch)
		if err != nil {
			return err
		}
		defer w.Close()
		go func() { errs <- editor.Watch(ctx, w) }()
	}

	if cfg.LiveEdit() {
		restore, err := liveedit.RawKeys(int(os.Stdin.Fd()))
		if err != nil {
			log.Debugf("Keys are read line by line: %v", err)
		} else {
			defer restore()
		}
		if err := editor.Run(os.Stdin); err != nil {
			return err
		}
	} else if cfg.Addr != "" || cfg.Watch != "" {
		select {
		case err := <-errs:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}
	}

	log.Info("Finished")
	return nil
}
