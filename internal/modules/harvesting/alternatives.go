package harvesting

// etfAlternatives maps widely held ETFs to substitutes tracking a
// different index, so the swap realizes the loss without being
// substantially identical to the sold position.
var etfAlternatives = map[string][]string{
	"SPY": {"VOO", "IVV", "SWPPX"},
	"QQQ": {"ONEQ", "QQQM", "FTEC"},
	"VTI": {"ITOT", "SCHB", "SWTSX"},
	"VEA": {"VXUS", "IXUS"},
	"BND": {"AGG"},
	"GLD": {"IAU"},
	"VNQ": {"SCHH"},
}

// sectorAlternatives maps a sector to broad sector ETFs, used when the
// sold position is a single stock rather than a fund.
var sectorAlternatives = map[string][]string{
	"technology":  {"XLK", "FTEC", "VGT"},
	"healthcare":  {"XLV", "VHT", "FHLC"},
	"financial":   {"XLF", "VFH", "FNCL"},
	"consumer":    {"XLY", "VCR", "FDIS"},
	"energy":      {"XLE", "VDE", "FENY"},
	"industrial":  {"XLI", "VIS", "FIDU"},
	"materials":   {"XLB", "VAW", "FMAT"},
	"utilities":   {"XLU", "VPU", "FUTY"},
	"real_estate": {"VNQ", "SCHH", "USRT"},
}

// broadMarketFallback covers symbols with no direct or sector match.
var broadMarketFallback = []string{"VTI", "ITOT", "SCHB"}

// SubstitutesFor suggests replacement candidates for a symbol being
// sold at a loss: a direct ETF alternative first, then sector ETFs,
// then broad market funds.
func SubstitutesFor(symbol, sector string) []string {
	if alts, ok := etfAlternatives[symbol]; ok {
		return alts
	}
	if alts, ok := sectorAlternatives[sector]; ok {
		return alts
	}
	return broadMarketFallback
}
