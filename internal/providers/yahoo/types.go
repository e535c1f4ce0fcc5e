package yahoo

// --- Yahoo Finance quoteSummary API response types ---

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *apiError            `json:"error"`
	} `json:"quoteSummary"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quoteSummaryResult struct {
	IncomeStatementHistory            *incomeContainer   `json:"incomeStatementHistory"`
	IncomeStatementHistoryQuarterly   *incomeContainer   `json:"incomeStatementHistoryQuarterly"`
	BalanceSheetHistory               *balanceContainer  `json:"balanceSheetHistory"`
	BalanceSheetHistoryQuarterly      *balanceContainer  `json:"balanceSheetHistoryQuarterly"`
	CashflowStatementHistory          *cashflowContainer `json:"cashflowStatementHistory"`
	CashflowStatementHistoryQuarterly *cashflowContainer `json:"cashflowStatementHistoryQuarterly"`
}

// The inner list key differs per module.
type incomeContainer struct {
	Statements []statement `json:"incomeStatementHistory"`
}

type balanceContainer struct {
	Statements []statement `json:"balanceSheetStatements"`
}

type cashflowContainer struct {
	Statements []statement `json:"cashflowStatements"`
}

// statement is one reporting period: a map of line-item field → value.
type statement map[string]finVal

type finVal struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}
