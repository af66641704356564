package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/smokyabdulrahman/namaz/internal/display"
	"github.com/smokyabdulrahman/namaz/internal/pricing"
	"github.com/smokyabdulrahman/namaz/internal/zakaat"
	"github.com/spf13/cobra"
)

var flagWealth zakaat.WealthDeclaration

func newZakaatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "zakaat",
		Aliases: []string{"zakat"},
		Short:   "Calculate Zakaat on your wealth",
		Long: "Calculate Zakaat (2.5%) on cash, savings, gold, silver and investments using live\n" +
			"gold, silver and exchange rates. Zakaat is due when total wealth reaches the Nisab,\n" +
			"the lower of the value of 2.5 troy ounces of gold and 52.5 troy ounces of silver.\n\n" +
			"Amounts are in the selected currency; gold and silver are in grams.\n\n" +
			"Example:\n  namaz zakaat --currency INR --cash 50000 --savings 150000 --gold 20",
		Args: cobra.NoArgs,
		RunE: runZakaat,
	}

	f := cmd.Flags()
	f.Float64Var(&flagWealth.Cash, "cash", 0, "Cash in hand")
	f.Float64Var(&flagWealth.Savings, "savings", 0, "Bank savings")
	f.Float64Var(&flagWealth.GoldGrams, "gold", 0, "Gold in grams")
	f.Float64Var(&flagWealth.SilverGrams, "silver", 0, "Silver in grams")
	f.Float64Var(&flagWealth.Stocks, "stocks", 0, "Stocks and shares")
	f.Float64Var(&flagWealth.Crypto, "crypto", 0, "Crypto holdings")
	f.Float64Var(&flagWealth.Other, "other", 0, "Other zakatable assets")
	return cmd
}

func newPricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Show live gold, silver and Nisab prices",
		Long:  "Display gold and silver prices per gram and the Nisab threshold in the selected currency.",
		Args:  cobra.NoArgs,
		RunE:  runPrices,
	}
}

func runZakaat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	cur, err := a.currency()
	if err != nil {
		return err
	}

	snap := pricing.NewFetcher(a.httpClient("prices")).FetchSnapshot(cmd.Context())
	if snap.Err != "" {
		a.log.Warn().Str("error", snap.Err).Msg("live prices incomplete")
	}

	session := zakaat.NewSession(zakaat.NewCalculator(), cur)
	session.Declare(flagWealth)
	res, err := session.Calculate(snap.Resolve(zakaat.FallbackProfile))
	if err != nil {
		return err
	}

	if FlagJSON {
		return writeJSON(a.out, zakaatJSON{Result: res, UpdatedAt: snap.UpdatedAt, Notice: notice(res.Fallback)})
	}
	printZakaat(a.out, session.Declaration(), res, snap.UpdatedAt)
	return nil
}

func runPrices(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	cur, err := a.currency()
	if err != nil {
		return err
	}

	snap := pricing.NewFetcher(a.httpClient("prices")).FetchSnapshot(cmd.Context())
	prices := snap.Resolve(zakaat.FallbackProfile)
	p, err := zakaat.DerivePricing(prices, cur)
	if err != nil {
		return err
	}

	if FlagJSON {
		return writeJSON(a.out, pricesJSON{Pricing: p, UpdatedAt: snap.UpdatedAt, Fallback: prices.Fallback, Notice: notice(prices.Fallback)})
	}
	printPrices(a.out, p, prices.Fallback, snap.UpdatedAt)
	return nil
}

type zakaatJSON struct {
	*zakaat.Result
	UpdatedAt string `json:"updated_at,omitempty"`
	Notice    string `json:"notice,omitempty"`
}

type pricesJSON struct {
	Pricing   zakaat.Pricing `json:"pricing"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	Fallback  bool           `json:"fallback"`
	Notice    string         `json:"notice,omitempty"`
}

func notice(fallback bool) string {
	if fallback {
		return pricing.FallbackNotice
	}
	return ""
}

// money formats an amount with the currency symbol and two decimals.
func money(c zakaat.Currency, d decimal.Decimal) string {
	return c.Symbol() + d.StringFixed(2)
}

func printPricing(w io.Writer, p zakaat.Pricing) {
	c := p.Currency
	fmt.Fprint(w, display.RenderPairs([]display.Pair{
		{Label: "Gold (per gram)", Value: money(c, p.GoldPerGram)},
		{Label: "Silver (per gram)", Value: money(c, p.SilverPerGram)},
		{Label: fmt.Sprintf("Gold Nisab (%sg)", grams(zakaat.GoldNisabOunces)), Value: money(c, p.GoldNisabValue)},
		{Label: fmt.Sprintf("Silver Nisab (%sg)", grams(zakaat.SilverNisabOunces)), Value: money(c, p.SilverNisabValue)},
		{Label: "Nisab threshold", Value: money(c, p.NisabThreshold), Emphasis: true},
	}))
}

func printFooter(w io.Writer, fallback bool, updatedAt string) {
	fmt.Fprintln(w)
	if fallback {
		fmt.Fprintf(w, "  %s\n", display.Notice(pricing.FallbackNotice))
	}
	if updatedAt != "" {
		fmt.Fprintf(w, "  %s\n", display.Gray("Rates updated "+updatedAt))
	}
	fmt.Fprintln(w)
}

func printPrices(w io.Writer, p zakaat.Pricing, fallback bool, updatedAt string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n\n", display.Boldf("Metal Prices (%s)", p.Currency))
	printPricing(w, p)
	printFooter(w, fallback, updatedAt)
}

func printZakaat(w io.Writer, decl zakaat.WealthDeclaration, res *zakaat.Result, updatedAt string) {
	c := res.Currency
	b := res.Breakdown

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n\n", display.Boldf("Zakaat Calculator (%s)", c))

	fmt.Fprint(w, display.RenderPairs([]display.Pair{
		{Label: "Cash & savings", Value: money(c, b.LiquidAssets.Decimal)},
		{Label: fmt.Sprintf("Gold (%sg)", decimal.NewFromFloat(decl.GoldGrams).String()), Value: money(c, b.GoldValue.Decimal)},
		{Label: fmt.Sprintf("Silver (%sg)", decimal.NewFromFloat(decl.SilverGrams).String()), Value: money(c, b.SilverValue.Decimal)},
		{Label: "Investments", Value: money(c, b.Investments.Decimal)},
		{Label: "Total wealth", Value: money(c, res.TotalWealth.Decimal), Emphasis: true},
		{Label: "Nisab threshold", Value: money(c, res.NisabThreshold.Decimal)},
	}))
	fmt.Fprintln(w)

	if res.IsEligible {
		fmt.Fprintf(w, "  %s %s\n", display.Green("Zakaat due (2.5%):"), display.Bold(money(c, res.ZakaatAmount.Decimal)))
	} else {
		fmt.Fprintf(w, "  %s\n", display.Yellow("Below Nisab: no Zakaat is due."))
	}
	printFooter(w, res.Fallback, updatedAt)
}

// grams converts troy ounces for labels.
func grams(ounces float64) string {
	return decimal.NewFromFloat(ounces).Mul(decimal.NewFromFloat(zakaat.TroyOunceGrams)).StringFixed(2)
}
