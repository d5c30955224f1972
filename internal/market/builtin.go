package market

// builtinCostModels returns the default exchange tables. Crypto spot pairs
// use the percentage regime; CME futures use fixed per-trade fees and
// tick-denominated slippage.
func builtinCostModels() []CostModel {
	return []CostModel{
		// Binance spot
		{
			Exchange:       "Binance",
			Symbol:         "BTC",
			Regime:         CostRegimePercentage,
			TickSize:       0.01,
			PricePrecision: 2,
			FeeRate:        0.001,
			SlippageRate:   0.0002,
		},
		{
			Exchange:       "Binance",
			Symbol:         "ETH",
			Regime:         CostRegimePercentage,
			TickSize:       0.01,
			PricePrecision: 2,
			FeeRate:        0.001,
			SlippageRate:   0.0002,
		},
		// Kucoin spot, finer ticks and slightly worse liquidity
		{
			Exchange:       "Kucoin",
			Symbol:         "BTC",
			Regime:         CostRegimePercentage,
			TickSize:       0.0001,
			PricePrecision: 4,
			FeeRate:        0.0008,
			SlippageRate:   0.0003,
		},
		{
			Exchange:       "Kucoin",
			Symbol:         "ETH",
			Regime:         CostRegimePercentage,
			TickSize:       0.0001,
			PricePrecision: 4,
			FeeRate:        0.0008,
			SlippageRate:   0.0003,
		},
		// CME futures, flat exchange fee per contract trade
		{
			Exchange:       "CME",
			Symbol:         "ES", // S&P 500 E-mini
			Regime:         CostRegimeFixed,
			TickSize:       0.25,
			PricePrecision: 2,
			ExchangeFee:    1.39,
			SlippageTicks:  1,
			TickValue:      12.50,
			ContractSize:   50,
			Currency:       "USD",
		},
		{
			Exchange:       "CME",
			Symbol:         "NQ", // Nasdaq-100 E-mini
			Regime:         CostRegimeFixed,
			TickSize:       0.25,
			PricePrecision: 2,
			ExchangeFee:    1.39,
			SlippageTicks:  1,
			TickValue:      5.00,
			ContractSize:   20,
			Currency:       "USD",
		},
		{
			Exchange:       "CME",
			Symbol:         "GC", // Gold (COMEX)
			Regime:         CostRegimeFixed,
			TickSize:       0.10,
			PricePrecision: 2,
			ExchangeFee:    1.60,
			SlippageTicks:  1,
			TickValue:      10.00,
			ContractSize:   100,
			Currency:       "USD",
		},
		{
			Exchange:       "CME",
			Symbol:         "CL", // Crude Oil (NYMEX)
			Regime:         CostRegimeFixed,
			TickSize:       0.01,
			PricePrecision: 2,
			ExchangeFee:    1.50,
			SlippageTicks:  2,
			TickValue:      10.00,
			ContractSize:   1000,
			Currency:       "USD",
		},
	}
}
