package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solkit/service/agent"
	"github.com/brojonat/solkit/service/sanctum"
)

type mockLiquidityAdder struct {
	mock.Mock
}

func (m *mockLiquidityAdder) AddSanctumLiquidity(ctx context.Context, params agent.AddLiquidityParams) (*agent.LiquidityResult, error) {
	args := m.Called(ctx, params)
	if res := args.Get(0); res != nil {
		return res.(*agent.LiquidityResult), args.Error(1)
	}
	return nil, args.Error(1)
}

const validLiquidityInput = `{
	"lstMint": "So11111111111111111111111111111111111111112",
	"amount": "1000000000",
	"quotedAmount": "900000000",
	"priorityFee": 5000
}`

func decodeMap(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestSanctumAddLiquidityTool_Success(t *testing.T) {
	adder := new(mockLiquidityAdder)
	adder.On("AddSanctumLiquidity", mock.Anything, agent.AddLiquidityParams{
		LSTMint:      "So11111111111111111111111111111111111111112",
		Amount:       "1000000000",
		QuotedAmount: "900000000",
		PriorityFee:  5000,
	}).Return(&agent.LiquidityResult{TxID: "5xYz"}, nil)

	tool := NewSanctumAddLiquidityTool(adder)
	out := tool.Call(context.Background(), validLiquidityInput)

	assert.Equal(t, `{"status":"success","message":"Liquidity added successfully","txId":"5xYz"}`, out)
	adder.AssertExpectations(t)
}

func TestSanctumAddLiquidityTool_NumericAmounts(t *testing.T) {
	adder := new(mockLiquidityAdder)
	adder.On("AddSanctumLiquidity", mock.Anything, mock.MatchedBy(func(p agent.AddLiquidityParams) bool {
		return p.Amount == "1000000000" && p.QuotedAmount == "900000000"
	})).Return(&agent.LiquidityResult{TxID: "sig"}, nil)

	tool := NewSanctumAddLiquidityTool(adder)
	out := tool.Call(context.Background(),
		`{"lstMint":"So11111111111111111111111111111111111111112","amount":1000000000,"quotedAmount":900000000,"priorityFee":1}`)

	assert.Equal(t, "success", decodeMap(t, out)["status"])
}

func TestSanctumAddLiquidityTool_MalformedJSON(t *testing.T) {
	adder := new(mockLiquidityAdder)
	tool := NewSanctumAddLiquidityTool(adder)

	out := decodeMap(t, tool.Call(context.Background(), `{"lstMint": `))
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, CodeInvalidInput, out["code"])
	assert.NotEmpty(t, out["message"])
	adder.AssertNotCalled(t, "AddSanctumLiquidity", mock.Anything, mock.Anything)
}

func TestSanctumAddLiquidityTool_MissingFields(t *testing.T) {
	tool := NewSanctumAddLiquidityTool(new(mockLiquidityAdder))

	inputs := map[string]string{
		"lstMint":      `{"amount":"1","quotedAmount":"1","priorityFee":1}`,
		"amount":       `{"lstMint":"So11111111111111111111111111111111111111112","quotedAmount":"1","priorityFee":1}`,
		"quotedAmount": `{"lstMint":"So11111111111111111111111111111111111111112","amount":"1","priorityFee":1}`,
		"priorityFee":  `{"lstMint":"So11111111111111111111111111111111111111112","amount":"1","quotedAmount":"1"}`,
		"bad mint":     `{"lstMint":"nope","amount":"1","quotedAmount":"1","priorityFee":1}`,
		"bad amount":   `{"lstMint":"So11111111111111111111111111111111111111112","amount":"1.5","quotedAmount":"1","priorityFee":1}`,
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			out := decodeMap(t, tool.Call(context.Background(), input))
			assert.Equal(t, "error", out["status"])
			assert.Equal(t, CodeInvalidInput, out["code"])
		})
	}
}

func TestSanctumAddLiquidityTool_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"plain error defaults", errors.New("boom"), CodeUnknown},
		{"sanctum api error", &sanctum.APIError{Code: sanctum.CodeAPIError, StatusCode: 400, Message: "bad"}, sanctum.CodeAPIError},
		{"wrapped coded error", &CodedError{Code: "CUSTOM", Err: errors.New("x")}, "CUSTOM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adder := new(mockLiquidityAdder)
			adder.On("AddSanctumLiquidity", mock.Anything, mock.Anything).Return(nil, tt.err)

			out := decodeMap(t, NewSanctumAddLiquidityTool(adder).Call(context.Background(), validLiquidityInput))
			assert.Equal(t, "error", out["status"])
			assert.Equal(t, tt.err.Error(), out["message"])
			assert.Equal(t, tt.code, out["code"])
		})
	}
}

func TestSanctumAddLiquidityTool_Metadata(t *testing.T) {
	tool := NewSanctumAddLiquidityTool(nil)
	assert.Equal(t, "sanctum_add_liquidity", tool.Name())
	assert.Contains(t, tool.Description(), "lstMint")
	assert.Len(t, ParamsOf(tool), 4)
}
