package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/tcmhub/wechat-login-bridge/internal/config"
	"github.com/tcmhub/wechat-login-bridge/login"
	"github.com/tcmhub/wechat-login-bridge/loginsession"
	"github.com/tcmhub/wechat-login-bridge/server"
	"github.com/tcmhub/wechat-login-bridge/token"
	"github.com/tcmhub/wechat-login-bridge/wechat"
)

// janitorGrace keeps authorized sessions around past the handshake TTL so a
// slow exchange call can still redeem them before the sweeper runs.
const janitorGrace = time.Minute

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	handler, janitor, err := bootstrap(c)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	janitor.Start(ctx)
	defer janitor.Stop()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func bootstrap(c config.Config) (*server.Server, *loginsession.Janitor, error) {
	sessions := loginsession.NewInMemoryRepo(c.GetSessionTTL())
	janitor := loginsession.NewJanitor(sessions, c.GetSessionTTL(), janitorGrace, c.GetSweepInterval())
	tickets := wechat.NewOfficialAccountProvider(c)

	loginService, err := login.NewService(sessions, tickets, token.NewCodec(c.GetSessionTTL()), c)
	if err != nil {
		return nil, nil, fmt.Errorf("login.NewService: %w", err)
	}

	httpHandler, err := server.New(c, loginService)
	if err != nil {
		return nil, nil, fmt.Errorf("server.New: %w", err)
	}

	return httpHandler, janitor, nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
