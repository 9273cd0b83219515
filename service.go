package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"
)

// program implements service.Interface
type program struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	defer close(p.done)
	runInteractive(p.ctx)
}

func (p *program) Stop(s service.Service) error {
	if p.cancel != nil {
		p.cancel()
	}
	select {
	case <-p.done:
	case <-time.After(30 * time.Second):
	}
	return nil
}

func getServiceConfig() *service.Config {
	return &service.Config{
		Name:             "netwarden",
		DisplayName:      "NetWarden Agent",
		Description:      "Home network guardian agent. Discovers LAN devices, tracks presence, and enforces MAC-level access control.",
		WorkingDirectory: "/var/lib/netwarden",
		Arguments:        []string{"--service", "run"},
		Option: service.KeyValue{
			"Restart":           "on-failure",
			"RestartSec":        5,
			"SuccessExitStatus": "0 SIGTERM",
			"KillMode":          "mixed",
			"KillSignal":        "SIGTERM",
		},
	}
}

// runAsService hands control to the service manager.
func runAsService() {
	prg := &program{}
	s, err := service.New(prg, getServiceConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize service: %v\n", err)
		os.Exit(1)
	}
	if err := s.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "service exited with error: %v\n", err)
		os.Exit(1)
	}
}

// handleServiceCommand processes install/uninstall/start/stop/status.
func handleServiceCommand(cmd string) {
	prg := &program{}
	s, err := service.New(prg, getServiceConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize service: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "install":
		if err := os.MkdirAll(getServiceConfig().WorkingDirectory, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create working directory: %v\n", err)
			os.Exit(1)
		}
		if err := s.Install(); err != nil {
			fmt.Fprintf(os.Stderr, "install failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service installed")
	case "uninstall":
		if err := s.Uninstall(); err != nil {
			fmt.Fprintf(os.Stderr, "uninstall failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service uninstalled")
	case "start":
		if err := s.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "start failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service started")
	case "stop":
		if err := s.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "stop failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service stopped")
	case "status":
		status, err := s.Status()
		if err != nil {
			fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
			os.Exit(1)
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service is running")
		case service.StatusStopped:
			fmt.Println("Service is stopped")
		default:
			fmt.Println("Service status unknown")
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown service command %q\n", cmd)
		os.Exit(1)
	}
}
