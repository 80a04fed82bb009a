package grpc

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/MiguelRipoll23/financeserver-sub001/internal/domain"
	"github.com/MiguelRipoll23/financeserver-sub001/internal/usecase/position"
)

// CreateBankAccount handles the CreateBankAccount RPC: {name, currency}
func (s *Server) CreateBankAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account, err := s.Positions.CreateBankAccount(ctx, stringField(req, "name"), stringField(req, "currency"))
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"id":         account.ID.String(),
		"name":       account.Name,
		"currency":   account.Currency,
		"created_at": formatTime(account.CreatedAt),
	})
}

// RecordBankBalance handles the RecordBankBalance RPC: {account_id, balance, currency?}
func (s *Server) RecordBankBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := uuidField(req, "account_id")
	if err != nil {
		return nil, err
	}
	amount, err := requiredDecimal(req, "balance")
	if err != nil {
		return nil, err
	}

	balance, err := s.Positions.RecordBankBalance(ctx, position.RecordBalanceInput{
		AccountID: accountID,
		Balance:   amount,
		Currency:  stringField(req, "currency"),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"id":         balance.ID.String(),
		"account_id": balance.AccountID.String(),
		"balance":    balance.Balance.String(),
		"currency":   balance.Currency,
		"created_at": formatTime(balance.CreatedAt),
	})
}

// CreateCryptoExchange handles the CreateCryptoExchange RPC: {name}
func (s *Server) CreateCryptoExchange(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	exchange, err := s.Positions.CreateCryptoExchange(ctx, stringField(req, "name"))
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"id":         exchange.ID.String(),
		"name":       exchange.Name,
		"created_at": formatTime(exchange.CreatedAt),
	})
}

// SaveCryptoBalance handles the SaveCryptoBalance RPC:
// {exchange_id, symbol, quantity, invested_amount?, invested_currency?}
func (s *Server) SaveCryptoBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	exchangeID, err := uuidField(req, "exchange_id")
	if err != nil {
		return nil, err
	}
	quantity, err := requiredDecimal(req, "quantity")
	if err != nil {
		return nil, err
	}
	invested, err := decimalField(req, "invested_amount")
	if err != nil {
		return nil, err
	}

	balance, err := s.Positions.SaveCryptoBalance(ctx, position.SaveCryptoBalanceInput{
		ExchangeID:       exchangeID,
		Symbol:           stringField(req, "symbol"),
		Quantity:         quantity,
		InvestedAmount:   invested,
		InvestedCurrency: stringField(req, "invested_currency"),
	})
	if err != nil {
		return nil, mapError(err)
	}

	m := map[string]interface{}{
		"id":          balance.ID.String(),
		"exchange_id": balance.ExchangeID.String(),
		"symbol":      balance.Symbol,
		"quantity":    balance.Quantity.String(),
	}
	if balance.CostBasis != nil {
		m["invested_amount"] = balance.CostBasis.InvestedAmount.String()
		m["invested_currency"] = balance.CostBasis.InvestedCurrency
	}
	return toStruct(m)
}

// CreatePortfolio handles the CreatePortfolio RPC: {name, currency, invested_amount?}
func (s *Server) CreatePortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	invested, err := decimalField(req, "invested_amount")
	if err != nil {
		return nil, err
	}

	portfolio, err := s.Positions.CreatePortfolio(ctx, stringField(req, "name"), stringField(req, "currency"), invested)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(portfolioToMap(portfolio))
}

// ReplaceFundHoldings handles the ReplaceFundHoldings RPC:
// {portfolio_id, holdings: [{symbol, weight, reference_price}]}
func (s *Server) ReplaceFundHoldings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	portfolioID, err := uuidField(req, "portfolio_id")
	if err != nil {
		return nil, err
	}

	values := req.GetFields()["holdings"].GetListValue().GetValues()
	inputs := make([]position.FundHoldingInput, 0, len(values))
	for _, v := range values {
		item := v.GetStructValue()
		if item == nil {
			return nil, status.Error(codes.InvalidArgument, "holdings must be a list of objects")
		}
		weight, err := requiredDecimal(item, "weight")
		if err != nil {
			return nil, err
		}
		reference, err := requiredDecimal(item, "reference_price")
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, position.FundHoldingInput{
			Symbol:         stringField(item, "symbol"),
			Weight:         weight,
			ReferencePrice: reference,
		})
	}

	holdings, err := s.Positions.ReplaceFundHoldings(ctx, portfolioID, inputs)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]interface{}, 0, len(holdings))
	for _, h := range holdings {
		items = append(items, map[string]interface{}{
			"id":              h.ID.String(),
			"symbol":          h.Symbol,
			"weight":          h.Weight.String(),
			"reference_price": h.ReferencePrice.String(),
		})
	}

	return toStruct(map[string]interface{}{
		"portfolio_id": portfolioID.String(),
		"holdings":     items,
	})
}

func requiredDecimal(req *structpb.Struct, name string) (decimal.Decimal, error) {
	v, err := decimalField(req, name)
	if err != nil {
		return decimal.Zero, err
	}
	if v == nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return *v, nil
}

func portfolioToMap(p *domain.RoboadvisorPortfolio) map[string]interface{} {
	m := map[string]interface{}{
		"id":              p.ID.String(),
		"name":            p.Name,
		"currency":        p.Currency,
		"invested_amount": nil,
		"created_at":      formatTime(p.CreatedAt),
	}
	if p.InvestedAmount != nil {
		m["invested_amount"] = p.InvestedAmount.String()
	}
	return m
}
