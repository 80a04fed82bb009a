package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/batch"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/position"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/summary"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/valuation"
)

// Calculator runs one synchronous valuation
type Calculator interface {
	Calculate(ctx context.Context, req valuation.Request) (*valuation.Outcome, error)
}

// SnapshotReader reads stored valuations
type SnapshotReader interface {
	GetLatest(ctx context.Context, key domain.OwnerKey) (*domain.ValuationSnapshot, error)
	History(ctx context.Context, key domain.OwnerKey) ([]*domain.ValuationSnapshot, error)
}

// RecomputeQueue accepts fire-and-forget recompute requests
type RecomputeQueue interface {
	Enqueue(class domain.AssetClass) (batch.Ack, error)
	LastReport(class domain.AssetClass) *batch.Report
}

// PositionWriter records the positions the engine values. Rate period writes run
// under the overlap guard.
type PositionWriter interface {
	CreateBankAccount(ctx context.Context, name, currency string) (*domain.BankAccount, error)
	RecordBankBalance(ctx context.Context, input position.RecordBalanceInput) (*domain.BankAccountBalance, error)
	CreateRatePeriod(ctx context.Context, input position.CreateRatePeriodInput) (*domain.RatePeriod, error)
	UpdateRatePeriod(ctx context.Context, input position.UpdateRatePeriodInput) (*domain.RatePeriod, error)
	DeleteRatePeriod(ctx context.Context, id uuid.UUID) error
	CreateCryptoExchange(ctx context.Context, name string) (*domain.CryptoExchange, error)
	SaveCryptoBalance(ctx context.Context, input position.SaveCryptoBalanceInput) (*domain.CryptoBalance, error)
	CreatePortfolio(ctx context.Context, name, currency string, investedAmount *decimal.Decimal) (*domain.RoboadvisorPortfolio, error)
	ReplaceFundHoldings(ctx context.Context, portfolioID uuid.UUID, inputs []position.FundHoldingInput) ([]*domain.FundHolding, error)
}

// NetWorthReader aggregates stored values
type NetWorthReader interface {
	GetNetWorth(ctx context.Context) (*summary.NetWorthResult, error)
}

// Server implements the ValuationService gRPC server
type Server struct {
	Calculator Calculator
	Snapshots  SnapshotReader
	Queue      RecomputeQueue
	Positions  PositionWriter
	NetWorth   NetWorthReader
}

var _ ValuationServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	calculator Calculator,
	snapshots SnapshotReader,
	queue RecomputeQueue,
	positions PositionWriter,
	netWorth NetWorthReader,
) *Server {
	return &Server{
		Calculator: calculator,
		Snapshots:  snapshots,
		Queue:      queue,
		Positions:  positions,
		NetWorth:   netWorth,
	}
}

// Calculate handles the Calculate RPC: {class, owner_id, symbol?}
func (s *Server) Calculate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := parseKey(req)
	if err != nil {
		return nil, err
	}

	calcReq, err := valuation.NewRequest(key.Class, key.OwnerID, key.Symbol)
	if err != nil {
		return nil, mapError(err)
	}

	out, err := s.Calculator.Calculate(ctx, calcReq)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(outcomeToMap(out))
}

// GetLatestSnapshot handles the GetLatestSnapshot RPC: {class, owner_id, symbol?}
func (s *Server) GetLatestSnapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := parseKey(req)
	if err != nil {
		return nil, err
	}

	snap, err := s.Snapshots.GetLatest(ctx, key)
	if err != nil {
		return nil, mapError(err)
	}
	if snap == nil {
		return nil, status.Errorf(codes.NotFound, "no snapshot stored for %s", key)
	}

	return toStruct(snapshotToMap(snap))
}

// ListSnapshots handles the ListSnapshots RPC, newest first
func (s *Server) ListSnapshots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := parseKey(req)
	if err != nil {
		return nil, err
	}

	history, err := s.Snapshots.History(ctx, key)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]interface{}, 0, len(history))
	for _, snap := range history {
		items = append(items, snapshotToMap(snap))
	}

	return toStruct(map[string]interface{}{"snapshots": items})
}

// RecomputeAll handles the RecomputeAll RPC: {class}. It returns as soon as the run is queued.
func (s *Server) RecomputeAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	class, err := domain.ParseAssetClass(stringField(req, "class"))
	if err != nil {
		return nil, mapError(err)
	}

	ack, err := s.Queue.Enqueue(class)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"run_id":      ack.RunID.String(),
		"class":       string(ack.Class),
		"enqueued_at": formatTime(ack.EnqueuedAt),
	})
}

// GetRecomputeReport handles the GetRecomputeReport RPC: {class}
func (s *Server) GetRecomputeReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	class, err := domain.ParseAssetClass(stringField(req, "class"))
	if err != nil {
		return nil, mapError(err)
	}

	report := s.Queue.LastReport(class)
	if report == nil {
		return nil, status.Errorf(codes.NotFound, "no finished %s run yet", class)
	}

	failures := make([]interface{}, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, map[string]interface{}{"key": f.Key.String(), "error": f.Err.Error()})
	}

	return toStruct(map[string]interface{}{
		"class":       string(report.Class),
		"total":       report.Total,
		"computed":    report.Computed,
		"skipped":     report.Skipped,
		"failures":    failures,
		"started_at":  formatTime(report.StartedAt),
		"finished_at": formatTime(report.FinishedAt),
	})
}

// GetNetWorth handles the GetNetWorth RPC
func (s *Server) GetNetWorth(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	result, err := s.NetWorth.GetNetWorth(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	totals := make([]interface{}, 0, len(result.ByCurrency))
	for _, t := range result.ByCurrency {
		totals = append(totals, map[string]interface{}{
			"currency": t.Currency,
			"bank":     t.Bank.StringFixed(2),
			"crypto":   t.Crypto.StringFixed(2),
			"funds":    t.Funds.StringFixed(2),
			"total":    t.Total.StringFixed(2),
		})
	}

	return toStruct(map[string]interface{}{
		"by_currency": totals,
		"as_of":       formatTime(result.AsOf),
	})
}

// CreateRatePeriod handles the CreateRatePeriod RPC: {account_id, rate, start_date, end_date?}
func (s *Server) CreateRatePeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := uuidField(req, "account_id")
	if err != nil {
		return nil, err
	}
	rate, err := decimalField(req, "rate")
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, status.Error(codes.InvalidArgument, "rate is required")
	}
	start, err := dateField(req, "start_date")
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, status.Error(codes.InvalidArgument, "start_date is required")
	}
	end, err := dateField(req, "end_date")
	if err != nil {
		return nil, err
	}

	period, err := s.Positions.CreateRatePeriod(ctx, position.CreateRatePeriodInput{
		AccountID: accountID,
		Rate:      *rate,
		StartDate: *start,
		EndDate:   end,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(ratePeriodToMap(period))
}

// UpdateRatePeriod handles the UpdateRatePeriod RPC: {id, rate?, start_date?, end_date?, clear_end_date?}
func (s *Server) UpdateRatePeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "id")
	if err != nil {
		return nil, err
	}
	rate, err := decimalField(req, "rate")
	if err != nil {
		return nil, err
	}
	start, err := dateField(req, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := dateField(req, "end_date")
	if err != nil {
		return nil, err
	}

	period, err := s.Positions.UpdateRatePeriod(ctx, position.UpdateRatePeriodInput{
		ID:           id,
		Rate:         rate,
		StartDate:    start,
		EndDate:      end,
		ClearEndDate: req.GetFields()["clear_end_date"].GetBoolValue(),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(ratePeriodToMap(period))
}

// DeleteRatePeriod handles the DeleteRatePeriod RPC: {id}
func (s *Server) DeleteRatePeriod(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := uuidField(req, "id")
	if err != nil {
		return nil, err
	}

	if err := s.Positions.DeleteRatePeriod(ctx, id); err != nil {
		return nil, mapError(err)
	}

	return &emptypb.Empty{}, nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(stringField(req, name))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return id, nil
}

// decimalField accepts a decimal string or a number; nil when the field is absent
func decimalField(req *structpb.Struct, name string) (*decimal.Decimal, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
		}
		return &d, nil
	case *structpb.Value_NumberValue:
		d := decimal.NewFromFloat(kind.NumberValue)
		return &d, nil
	case *structpb.Value_NullValue:
		return nil, nil
	}
	return nil, status.Errorf(codes.InvalidArgument, "%s must be a string or a number", name)
}

// dateField parses a YYYY-MM-DD field; nil when the field is absent or empty
func dateField(req *structpb.Struct, name string) (*time.Time, error) {
	raw := stringField(req, name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s format, want YYYY-MM-DD: %v", name, err)
	}
	return &t, nil
}

func parseKey(req *structpb.Struct) (domain.OwnerKey, error) {
	class, err := domain.ParseAssetClass(stringField(req, "class"))
	if err != nil {
		return domain.OwnerKey{}, mapError(err)
	}
	ownerID, err := uuidField(req, "owner_id")
	if err != nil {
		return domain.OwnerKey{}, err
	}

	key := domain.OwnerKey{Class: class, OwnerID: ownerID, Symbol: domain.NormalizeSymbol(stringField(req, "symbol"))}
	if err := key.Validate(); err != nil {
		return domain.OwnerKey{}, mapError(err)
	}
	return key, nil
}

func toStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func keyToMap(key domain.OwnerKey) map[string]interface{} {
	return map[string]interface{}{
		"class":    string(key.Class),
		"owner_id": key.OwnerID.String(),
		"symbol":   key.Symbol,
	}
}

func snapshotToMap(snap *domain.ValuationSnapshot) map[string]interface{} {
	m := map[string]interface{}{
		"id":          snap.ID.String(),
		"class":       string(snap.Class),
		"owner_id":    snap.OwnerID.String(),
		"symbol":      snap.Symbol,
		"value":       snap.Value.StringFixed(2),
		"currency":    snap.Currency,
		"computed_at": formatTime(snap.ComputedAt),
	}
	if snap.AnnualValue != nil {
		m["annual_value"] = snap.AnnualValue.StringFixed(2)
	}
	return m
}

func ratePeriodToMap(p *domain.RatePeriod) map[string]interface{} {
	m := map[string]interface{}{
		"id":         p.ID.String(),
		"account_id": p.AccountID.String(),
		"rate":       p.Rate.String(),
		"start_date": p.StartDate.Format(time.DateOnly),
		"end_date":   nil,
	}
	if p.EndDate != nil {
		m["end_date"] = p.EndDate.Format(time.DateOnly)
	}
	return m
}

func outcomeToMap(out *valuation.Outcome) map[string]interface{} {
	m := map[string]interface{}{
		"key":    keyToMap(out.Key),
		"status": string(out.Status),
	}
	if out.Reason != "" {
		m["reason"] = out.Reason
	}
	if out.Snapshot != nil {
		m["snapshot"] = snapshotToMap(out.Snapshot)
	}

	switch {
	case out.Interest != nil:
		b := out.Interest
		breakdown := map[string]interface{}{
			"balance":  b.Balance.String(),
			"currency": b.Currency,
			"rate":     b.Rate.String(),
			"monthly":  b.Monthly.StringFixed(2),
			"annual":   b.Annual.StringFixed(2),
		}
		if b.RatePeriodID != nil {
			breakdown["rate_period_id"] = b.RatePeriodID.String()
		}
		m["interest"] = breakdown
	case out.Crypto != nil:
		b := out.Crypto
		m["crypto"] = map[string]interface{}{
			"quantity":        b.Quantity.String(),
			"price":           b.Price.String(),
			"current_value":   b.CurrentValue.StringFixed(2),
			"invested_amount": b.InvestedAmount.StringFixed(2),
			"currency":        b.Currency,
			"gain":            b.Gain.StringFixed(2),
			"tax_rate":        b.TaxRate.String(),
			"tax":             b.Tax.StringFixed(2),
			"after_tax":       b.AfterTax.StringFixed(2),
		}
	case out.Fund != nil:
		b := out.Fund
		lines := make([]interface{}, 0, len(b.Lines))
		for _, l := range b.Lines {
			lines = append(lines, map[string]interface{}{
				"symbol":    l.Symbol,
				"allocated": l.Allocated.StringFixed(2),
				"units":     l.Units.String(),
				"price":     l.Price.String(),
				"value":     l.Value.StringFixed(2),
			})
		}
		m["fund"] = map[string]interface{}{
			"invested_amount": b.InvestedAmount.StringFixed(2),
			"currency":        b.Currency,
			"total_weight":    b.TotalWeight.String(),
			"lines":           lines,
			"value":           b.Value.StringFixed(2),
		}
	}

	return m
}
