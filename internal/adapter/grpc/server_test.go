package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/pricing"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/adapter/repository/memory"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/batch"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/position"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/snapshot"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/summary"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/valuation"
)

const testToken = "test-token-123"

type testEnv struct {
	client    *Client
	health    healthpb.HealthClient
	positions *position.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	repos := store.Repositories()
	snaps := snapshot.NewStore(repos.Snapshots)

	prices := pricing.Static{}
	prices.Set("BTC", "EUR", decimal.NewFromInt(60000))

	engine := valuation.NewEngine(repos, prices, prices, snaps)
	positions := position.NewService(store.TxManager(), repos)
	driver := batch.NewDriver(engine, repos, 2, nil)
	queue := batch.NewQueue(driver, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go queue.Run(ctx, 1)

	lis := bufconn.Listen(1 << 20)
	srv := grpclib.NewServer(grpclib.ChainUnaryInterceptor(
		LoggingInterceptor(nil),
		AuthInterceptor(testToken, "/grpc.health.v1.Health/"),
	))
	RegisterValuationServiceServer(srv, NewServer(engine, snaps, queue, positions, summary.NewService(repos, snaps)))
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		cancel()
	})

	return &testEnv{client: NewClient(conn), health: healthpb.NewHealthClient(conn), positions: positions}
}

func authCtx() context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", testToken)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestServer_CreateRatePeriodRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	account, err := env.positions.CreateBankAccount(context.Background(), "Savings", "EUR")
	require.NoError(t, err)

	// Setup
	resp, err := env.client.CreateRatePeriod(authCtx(), mustStruct(t, map[string]interface{}{
		"account_id": account.ID.String(),
		"rate":       "2.5",
		"start_date": "2026-01-01",
		"end_date":   "2026-03-31",
	}))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-31", resp.GetFields()["end_date"].GetStringValue())

	// Execute: shares the last day of the first period
	_, err = env.client.CreateRatePeriod(authCtx(), mustStruct(t, map[string]interface{}{
		"account_id": account.ID.String(),
		"rate":       3,
		"start_date": "2026-03-31",
		"end_date":   "2026-06-30",
	}))

	// Assert
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestServer_CreateRatePeriodErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  map[string]interface{}
		code codes.Code
	}{
		{"bad account id", map[string]interface{}{"account_id": "nope", "rate": "1", "start_date": "2026-01-01"}, codes.InvalidArgument},
		{"bad date", map[string]interface{}{"account_id": uuid.NewString(), "rate": "1", "start_date": "01/01/2026"}, codes.InvalidArgument},
		{"missing rate", map[string]interface{}{"account_id": uuid.NewString(), "start_date": "2026-01-01"}, codes.InvalidArgument},
		{"unknown account", map[string]interface{}{"account_id": uuid.NewString(), "rate": "1", "start_date": "2026-01-01"}, codes.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.CreateRatePeriod(authCtx(), mustStruct(t, tt.req))
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestServer_CalculateCrypto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	exchange, err := env.positions.CreateCryptoExchange(ctx, "Kraken")
	require.NoError(t, err)
	invested := decimal.NewFromInt(50000)
	_, err = env.positions.SaveCryptoBalance(ctx, position.SaveCryptoBalanceInput{
		ExchangeID: exchange.ID, Symbol: "BTC", Quantity: decimal.NewFromInt(1),
		InvestedAmount: &invested, InvestedCurrency: "EUR",
	})
	require.NoError(t, err)

	key := map[string]interface{}{"class": "crypto", "owner_id": exchange.ID.String(), "symbol": "btc"}

	// Execute
	resp, err := env.client.Calculate(authCtx(), mustStruct(t, key))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "computed", resp.GetFields()["status"].GetStringValue())
	breakdown := resp.GetFields()["crypto"].GetStructValue().GetFields()
	assert.Equal(t, "57000.00", breakdown["after_tax"].GetStringValue())
	assert.Equal(t, "3000.00", breakdown["tax"].GetStringValue())

	latest, err := env.client.GetLatestSnapshot(authCtx(), mustStruct(t, key))
	require.NoError(t, err)
	assert.Equal(t, "57000.00", latest.GetFields()["value"].GetStringValue())
	assert.Equal(t, "BTC", latest.GetFields()["symbol"].GetStringValue())

	history, err := env.client.ListSnapshots(authCtx(), mustStruct(t, key))
	require.NoError(t, err)
	assert.Len(t, history.GetFields()["snapshots"].GetListValue().GetValues(), 1)
}

func TestServer_CalculateErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Calculate(authCtx(), mustStruct(t, map[string]interface{}{"class": "stocks", "owner_id": uuid.NewString()}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.client.Calculate(authCtx(), mustStruct(t, map[string]interface{}{"class": "interest", "owner_id": uuid.NewString()}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.client.GetLatestSnapshot(authCtx(), mustStruct(t, map[string]interface{}{"class": "fund", "owner_id": uuid.NewString()}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_RecomputeAllAcknowledges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.positions.CreateBankAccount(ctx, "Savings", "EUR")
	require.NoError(t, err)
	_, err = env.positions.RecordBankBalance(ctx, position.RecordBalanceInput{AccountID: account.ID, Balance: decimal.NewFromInt(12000)})
	require.NoError(t, err)

	ack, err := env.client.RecomputeAll(authCtx(), mustStruct(t, map[string]interface{}{"class": "interest"}))
	require.NoError(t, err)
	_, err = uuid.Parse(ack.GetFields()["run_id"].GetStringValue())
	assert.NoError(t, err)

	req := mustStruct(t, map[string]interface{}{"class": "interest"})
	assert.Eventually(t, func() bool {
		report, err := env.client.GetRecomputeReport(authCtx(), req)
		return err == nil && report.GetFields()["computed"].GetNumberValue() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_GetNetWorth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.positions.CreateBankAccount(ctx, "Savings", "EUR")
	require.NoError(t, err)
	_, err = env.positions.RecordBankBalance(ctx, position.RecordBalanceInput{AccountID: account.ID, Balance: decimal.RequireFromString("1234.5")})
	require.NoError(t, err)

	resp, err := env.client.GetNetWorth(authCtx())

	require.NoError(t, err)
	totals := resp.GetFields()["by_currency"].GetListValue().GetValues()
	require.Len(t, totals, 1)
	eur := totals[0].GetStructValue().GetFields()
	assert.Equal(t, "EUR", eur["currency"].GetStringValue())
	assert.Equal(t, "1234.50", eur["total"].GetStringValue())
}

func TestServer_Auth(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.GetNetWorth(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	resp, err := env.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestServer_PositionWritesFeedValuation(t *testing.T) {
	env := newTestEnv(t)
	ctx := authCtx()

	// Setup: every position is created over the admin service
	account, err := env.client.CreateBankAccount(ctx, mustStruct(t, map[string]interface{}{"name": "Savings", "currency": "eur"}))
	require.NoError(t, err)
	assert.Equal(t, "EUR", account.GetFields()["currency"].GetStringValue())

	balance, err := env.client.RecordBankBalance(ctx, mustStruct(t, map[string]interface{}{
		"account_id": account.GetFields()["id"].GetStringValue(),
		"balance":    "1500.25",
	}))
	require.NoError(t, err)
	assert.Equal(t, "EUR", balance.GetFields()["currency"].GetStringValue())

	exchange, err := env.client.CreateCryptoExchange(ctx, mustStruct(t, map[string]interface{}{"name": "Kraken"}))
	require.NoError(t, err)
	exchangeID := exchange.GetFields()["id"].GetStringValue()

	crypto, err := env.client.SaveCryptoBalance(ctx, mustStruct(t, map[string]interface{}{
		"exchange_id":       exchangeID,
		"symbol":            "btc",
		"quantity":          "1",
		"invested_amount":   "50000",
		"invested_currency": "EUR",
	}))
	require.NoError(t, err)
	assert.Equal(t, "BTC", crypto.GetFields()["symbol"].GetStringValue())

	portfolio, err := env.client.CreatePortfolio(ctx, mustStruct(t, map[string]interface{}{
		"name": "Indexa", "currency": "EUR", "invested_amount": "10000",
	}))
	require.NoError(t, err)

	holdings, err := env.client.ReplaceFundHoldings(ctx, mustStruct(t, map[string]interface{}{
		"portfolio_id": portfolio.GetFields()["id"].GetStringValue(),
		"holdings": []interface{}{
			map[string]interface{}{"symbol": "iwda.as", "weight": "0.7", "reference_price": "80"},
			map[string]interface{}{"symbol": "emim.as", "weight": 0.3, "reference_price": 30},
		},
	}))
	require.NoError(t, err)
	assert.Len(t, holdings.GetFields()["holdings"].GetListValue().GetValues(), 2)

	// Execute
	resp, err := env.client.Calculate(ctx, mustStruct(t, map[string]interface{}{
		"class": "crypto", "owner_id": exchangeID, "symbol": "BTC",
	}))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "57000.00", resp.GetFields()["crypto"].GetStructValue().GetFields()["after_tax"].GetStringValue())
}

func TestServer_PositionWriteErrors(t *testing.T) {
	env := newTestEnv(t)
	exchange, err := env.positions.CreateCryptoExchange(context.Background(), "Kraken")
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"bad currency", func() error {
			_, err := env.client.CreateBankAccount(authCtx(), mustStruct(t, map[string]interface{}{"name": "Savings", "currency": "NOPE"}))
			return err
		}, codes.InvalidArgument},
		{"balance for unknown account", func() error {
			_, err := env.client.RecordBankBalance(authCtx(), mustStruct(t, map[string]interface{}{"account_id": uuid.NewString(), "balance": "1"}))
			return err
		}, codes.NotFound},
		{"missing quantity", func() error {
			_, err := env.client.SaveCryptoBalance(authCtx(), mustStruct(t, map[string]interface{}{"exchange_id": exchange.ID.String(), "symbol": "BTC"}))
			return err
		}, codes.InvalidArgument},
		{"cost basis without currency", func() error {
			_, err := env.client.SaveCryptoBalance(authCtx(), mustStruct(t, map[string]interface{}{
				"exchange_id": exchange.ID.String(), "symbol": "BTC", "quantity": "1", "invested_amount": "100",
			}))
			return err
		}, codes.InvalidArgument},
		{"holdings for unknown portfolio", func() error {
			_, err := env.client.ReplaceFundHoldings(authCtx(), mustStruct(t, map[string]interface{}{
				"portfolio_id": uuid.NewString(),
				"holdings":     []interface{}{map[string]interface{}{"symbol": "IWDA.AS", "weight": "1", "reference_price": "80"}},
			}))
			return err
		}, codes.NotFound},
		{"holding is not an object", func() error {
			_, err := env.client.ReplaceFundHoldings(authCtx(), mustStruct(t, map[string]interface{}{
				"portfolio_id": uuid.NewString(),
				"holdings":     []interface{}{"IWDA.AS"},
			}))
			return err
		}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(tt.call()))
		})
	}
}
