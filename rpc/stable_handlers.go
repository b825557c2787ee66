package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type depositParams struct {
	From   string `json:"from"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type redeemParams struct {
	From   string `json:"from"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type mintParams struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

type depositAndMintParams struct {
	From             string `json:"from"`
	Asset            string `json:"asset"`
	CollateralAmount string `json:"collateralAmount"`
	MintAmount       string `json:"mintAmount"`
}

type redeemForStableParams struct {
	From             string `json:"from"`
	Asset            string `json:"asset"`
	CollateralAmount string `json:"collateralAmount"`
	BurnAmount       string `json:"burnAmount"`
}

type liquidateParams struct {
	Liquidator  string `json:"liquidator"`
	Target      string `json:"target"`
	Asset       string `json:"asset"`
	DebtToCover string `json:"debtToCover"`
}

type accountParams struct {
	Address string `json:"address"`
}

type balanceParams struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
}

type conversionParams struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type accountResult struct {
	Debt            string `json:"debt"`
	CollateralValue string `json:"collateralValueUsd"`
}

type paramsResult struct {
	LiquidationThreshold uint64 `json:"liquidationThreshold"`
	LiquidationPrecision uint64 `json:"liquidationPrecision"`
	LiquidationBonus     uint64 `json:"liquidationBonus"`
	MinHealthFactor      string `json:"minHealthFactor"`
	OracleMaxAgeSeconds  int64  `json:"oracleMaxAgeSeconds"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one parameter object")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(field, value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%s is not a valid address", field)
	}
	return common.HexToAddress(trimmed), nil
}

func parseAmount(field, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("%s is not a valid integer amount", field)
	}
	return amount, nil
}

func (s *Server) handleDepositCollateral(w http.ResponseWriter, req *RPCRequest) {
	var params depositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	opErr := s.engine.DepositCollateral(from, asset, amount)
	s.metrics.ObserveOperation("deposit_collateral", opErr)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleRedeemCollateral(w http.ResponseWriter, req *RPCRequest) {
	var params redeemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	opErr := s.engine.RedeemCollateral(from, asset, amount)
	s.metrics.ObserveOperation("redeem_collateral", opErr)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleMint(w http.ResponseWriter, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	opErr := s.engine.MintStable(from, amount)
	s.metrics.ObserveOperation("mint", opErr)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleBurn(w http.ResponseWriter, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	opErr := s.engine.BurnStable(from, amount)
	s.metrics.ObserveOperation("burn", opErr)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleDepositAndMint(w http.ResponseWriter, req *RPCRequest) {
	var params depositAndMintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	collateralAmount, err := parseAmount("collateralAmount", params.CollateralAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	mintAmount, err := parseAmount("mintAmount", params.MintAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	opErr := s.engine.DepositCollateralAndMintStable(from, asset, collateralAmount, mintAmount)
	s.metrics.ObserveOperation("deposit_and_mint", opErr)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleRedeemForStable(w http.ResponseWriter, req *RPCRequest) {
	var params redeemForStableParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	collateralAmount, err := parseAmount("collateralAmount", params.CollateralAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	burnAmount, err := parseAmount("burnAmount", params.BurnAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	opErr := s.engine.RedeemCollateralForStable(from, asset, collateralAmount, burnAmount)
	s.metrics.ObserveOperation("redeem_for_stable", opErr)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleLiquidate(w http.ResponseWriter, req *RPCRequest) {
	var params liquidateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	liquidator, err := parseAddress("liquidator", params.Liquidator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	target, err := parseAddress("target", params.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debtToCover, err := parseAmount("debtToCover", params.DebtToCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	opErr := s.engine.Liquidate(liquidator, target, asset, debtToCover)
	s.metrics.ObserveOperation("liquidate", opErr)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	s.metrics.ObserveLiquidation()
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	address, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debt, collateralValue, opErr := s.engine.AccountInformation(address)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, accountResult{Debt: debt.String(), CollateralValue: collateralValue.String()})
}

func (s *Server) handleGetHealthFactor(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	address, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	factor, opErr := s.engine.HealthFactor(address)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, factor.String())
}

func (s *Server) handleGetCollateralBalance(w http.ResponseWriter, req *RPCRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	address, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, opErr := s.engine.CollateralBalance(address, asset)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, balance.String())
}

func (s *Server) handleGetCollateralAssets(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	assets := s.engine.CollateralAssets()
	hexed := make([]string, 0, len(assets))
	for _, asset := range assets {
		hexed = append(hexed, asset.Hex())
	}
	writeResult(w, req.ID, hexed)
}

func (s *Server) handleGetParams(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	engineParams := s.engine.Params()
	writeResult(w, req.ID, paramsResult{
		LiquidationThreshold: engineParams.LiquidationThreshold,
		LiquidationPrecision: engineParams.LiquidationPrecision,
		LiquidationBonus:     engineParams.LiquidationBonus,
		MinHealthFactor:      engineParams.MinHealthFactor.String(),
		OracleMaxAgeSeconds:  int64(engineParams.OracleMaxAge.Seconds()),
	})
}

func (s *Server) handleGetUsdValue(w http.ResponseWriter, req *RPCRequest) {
	var params conversionParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, opErr := s.engine.UsdValue(asset, amount)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, value.String())
}

func (s *Server) handleGetTokenAmountFromUsd(w http.ResponseWriter, req *RPCRequest) {
	var params conversionParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, opErr := s.engine.TokenAmountFromUsd(asset, amount)
	if opErr != nil {
		s.writeEngineError(w, req.ID, opErr)
		return
	}
	writeResult(w, req.ID, value.String())
}
