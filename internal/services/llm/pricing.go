package llm

// modelPrice holds USD prices per 1M tokens for a model.
type modelPrice struct {
	Input  float64
	Output float64
}

// priceTable lists per-model token pricing. Unknown models fall back to
// defaultPrice so cost tracking never breaks when a new model ships.
var priceTable = map[string]modelPrice{
	"claude-haiku-3-5-20241022": {Input: 0.80, Output: 4.00},
	"claude-sonnet-4-20250514":  {Input: 3.00, Output: 15.00},
	"claude-opus-4-20250514":    {Input: 15.00, Output: 75.00},
}

var defaultPrice = modelPrice{Input: 3.00, Output: 15.00}

// estimateCost computes the cost of a single call in USD from token
// counts: prompt/1M * input price + completion/1M * output price.
func estimateCost(model string, promptTokens, completionTokens int64) float64 {
	price, ok := priceTable[model]
	if !ok {
		price = defaultPrice
	}
	return float64(promptTokens)/1_000_000*price.Input +
		float64(completionTokens)/1_000_000*price.Output
}
