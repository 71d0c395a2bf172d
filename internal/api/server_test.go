package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"tradelab/internal/config"
	"tradelab/internal/domain"
	"tradelab/internal/engine"
	"tradelab/internal/httpapi"
	"tradelab/internal/util"
)

type runnerFunc func(ctx context.Context, req engine.Request) ([]domain.BacktestResult, error)

func (f runnerFunc) Run(ctx context.Context, req engine.Request) ([]domain.BacktestResult, error) {
	return f(ctx, req)
}

// dial starts a gRPC server for runner on an in-memory listener and returns
// a connected client.
func dial(t *testing.T, runner httpapi.Runner) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(runner, util.Discard())
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func active(v bool) *bool { return &v }

func TestBacktestRun(t *testing.T) {
	conn := dial(t, engine.New(nil, engine.WithLogger(util.Discard())))
	client := NewBacktestClient(conn)

	req := httpapi.BacktestRequest{
		Capital:   50000,
		StartDate: "2024-01-08",
		EndDate:   "2024-01-12",
		Strategies: []httpapi.StrategySpec{
			{Strategy: domain.Strategy{ID: "m1", Type: domain.StrategyMomentum, Tickers: []string{"AAPL"}}},
			{Strategy: domain.Strategy{ID: "off", Type: domain.StrategyBreakout}, Active: active(false)},
		},
	}
	resp, err := client.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	res := resp.Results[0]
	if res.StrategyID != "m1" || len(res.EquityCurve) != 5 {
		t.Errorf("result id %q with %d curve points", res.StrategyID, len(res.EquityCurve))
	}
	if res.Metrics.TotalTrades != len(res.Trades) {
		t.Errorf("totalTrades = %d, trades = %d", res.Metrics.TotalTrades, len(res.Trades))
	}
	if resp.Results[1].DataSource != domain.SourceNone {
		t.Errorf("inactive data source = %q", resp.Results[1].DataSource)
	}

	// The gRPC payload matches a direct engine run.
	direct, err := engine.New(nil, engine.WithLogger(util.Discard())).Run(context.Background(), mustEngineRequest(t, req))
	if err != nil {
		t.Fatalf("direct Run: %v", err)
	}
	a, _ := json.Marshal(direct)
	b, _ := json.Marshal(resp.Results)
	if string(a) != string(b) {
		t.Error("gRPC results differ from a direct engine run")
	}
}

func mustEngineRequest(t *testing.T, r httpapi.BacktestRequest) engine.Request {
	t.Helper()
	req, err := r.EngineRequest()
	if err != nil {
		t.Fatalf("EngineRequest: %v", err)
	}
	return req
}

func TestBacktestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		runner httpapi.Runner
		req    httpapi.BacktestRequest
		want   codes.Code
	}{
		{
			name:   "bad date",
			runner: engine.New(nil, engine.WithLogger(util.Discard())),
			req:    httpapi.BacktestRequest{Capital: 1, StartDate: "yesterday", EndDate: "2024-01-08"},
			want:   codes.InvalidArgument,
		},
		{
			name:   "validation",
			runner: engine.New(nil, engine.WithLogger(util.Discard())),
			req:    httpapi.BacktestRequest{Capital: 0, StartDate: "2024-01-08", EndDate: "2024-01-08"},
			want:   codes.InvalidArgument,
		},
		{
			name: "internal",
			runner: runnerFunc(func(ctx context.Context, req engine.Request) ([]domain.BacktestResult, error) {
				return nil, errors.New("boom")
			}),
			req:  httpapi.BacktestRequest{Capital: 1, StartDate: "2024-01-08", EndDate: "2024-01-08"},
			want: codes.Internal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBacktestClient(dial(t, tt.runner)).Run(context.Background(), tt.req)
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %s, want %s (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	conn := dial(t, nil)
	hc := healthpb.NewHealthClient(conn)
	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %s, want SERVING", resp.GetStatus())
	}
}

func TestServerServeAndShutdown(t *testing.T) {
	cfg := config.Defaults()
	s := NewServer(&cfg, engine.New(nil, engine.WithLogger(util.Discard())), util.Discard())

	hl, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gl := bufconn.Listen(1 << 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, hl, gl) }()

	url := "http://" + hl.Addr().String() + "/health"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
