package compliance

import "strings"

// sectorTable maps common symbols to their sector for the sector
// concentration rule. Symbols not listed evaluate as sector-unknown and
// skip the rule. TODO: replace with the sector column once the market-data
// service exposes classifications.
var sectorTable = map[string]string{
	"AAPL": "technology",
	"MSFT": "technology",
	"NVDA": "technology",
	"GOOG": "technology",
	"META": "technology",
	"INTC": "technology",
	"AMD":  "technology",
	"CRM":  "technology",
	"QQQ":  "technology",
	"XLK":  "technology",

	"JNJ":  "healthcare",
	"PFE":  "healthcare",
	"UNH":  "healthcare",
	"MRK":  "healthcare",
	"ABBV": "healthcare",
	"XLV":  "healthcare",

	"JPM": "financial",
	"BAC": "financial",
	"WFC": "financial",
	"GS":  "financial",
	"V":   "financial",
	"XLF": "financial",

	"AMZN": "consumer",
	"TSLA": "consumer",
	"HD":   "consumer",
	"NKE":  "consumer",
	"MCD":  "consumer",
	"XLY":  "consumer",

	"XOM": "energy",
	"CVX": "energy",
	"COP": "energy",
	"XLE": "energy",

	"BA":  "industrial",
	"CAT": "industrial",
	"GE":  "industrial",
	"XLI": "industrial",

	"LIN": "materials",
	"SHW": "materials",
	"XLB": "materials",

	"NEE": "utilities",
	"DUK": "utilities",
	"SO":  "utilities",
	"XLU": "utilities",

	"PLD": "real_estate",
	"AMT": "real_estate",
	"VNQ": "real_estate",
}

// SectorOf returns the sector for a symbol, or "" when unknown.
func SectorOf(symbol string) string {
	return sectorTable[strings.ToUpper(strings.TrimSpace(symbol))]
}
