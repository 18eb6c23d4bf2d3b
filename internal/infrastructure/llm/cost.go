package llm

// Per-1M-token prices used for the usage-log cost estimate.
const (
	inputPricePerM  = 3.0
	outputPricePerM = 15.0
)

// EstimateCost approximates the USD cost of a call from its token
// counts. Accounting-grade only; billing truth lives with the provider.
func EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*inputPricePerM +
		float64(outputTokens)/1_000_000*outputPricePerM
}

// ApproxTokens estimates the token count of a text when no usage data is
// available, at roughly four characters per token.
func ApproxTokens(text string) int {
	return len(text) / 4
}
