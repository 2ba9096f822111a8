package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"IEXCast/pkg/config"
	xhttp "IEXCast/pkg/http"
	applogger "IEXCast/pkg/logger"
	"IEXCast/pkg/queue"
)

type routes struct{}

func (routes) RegisterRoutes(*echo.Echo) {}

func TestAppLifecycle(t *testing.T) {
	cfg := config.Default()
	l := applogger.Nop()
	srv := xhttp.NewServer(routes{}, l, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetricsPath(""))
	q := queue.NewLocalQueue(l, &queue.Config{Workers: 1})

	var order []string
	closer := func(name string, err error) Closer {
		return Closer{Name: name, Close: func() error {
			order = append(order, name)
			return err
		}}
	}
	app := New(cfg, l, srv, q, nil, closer("first", nil), closer("second", errors.New("boom")))

	if err := app.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := q.Start(); !errors.Is(err, queue.ErrAlreadyStart) {
		t.Fatalf("queue should already be running, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("closers should run in reverse and survive errors, got %v", order)
	}
	if err := q.Enqueue(ctx, "any", nil); !errors.Is(err, queue.ErrNotRunning) {
		t.Fatalf("queue should be stopped, got %v", err)
	}
}
