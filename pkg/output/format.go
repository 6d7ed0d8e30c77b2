// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/mac-forecast/internal/forecast"
	"github.com/iwvelando/mac-forecast/pkg/constants"
	"github.com/iwvelando/mac-forecast/pkg/mathutil"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Fixed renders v with the output precision. Non-finite values are
// rendered with %v.
func Fixed(v float64) string {
	if !mathutil.IsFinite(v) {
		return fmt.Sprintf("%v", v)
	}
	return decimal.NewFromFloat(v).StringFixed(constants.OutputPrecision)
}

// PrettyFormat writes a human-readable rather than machine-readable table.
// Years are printed without digit grouping.
func PrettyFormat(w io.Writer, results []forecast.Forecast) {
	p := message.NewPrinter(language.English)
	for i, result := range results {
		fmt.Fprintf(w, "--- Results for scenario %s ---\n", result.Name)
		fmt.Fprintf(w, "Region     | Gas    | Year | Carbon price | Effective price | Reduction\n")
		fmt.Fprintf(w, "______     | ___    | ____ | ____________ | _______________ | _________\n")
		for _, r := range result.Reductions {
			_, _ = p.Fprintf(w, "%-10s | %-6s | %s | %12.2f | %15.2f | %s\n",
				r.Region, r.Gas, strconv.Itoa(r.Year), r.CarbonPrice, r.EffectivePrice, Fixed(r.Reduction))
		}

		if len(result.ShareWeights) > 0 {
			fmt.Fprintf(w, "\nRegion     | Technology           | Year | Internal gains | Share weight\n")
			fmt.Fprintf(w, "______     | __________           | ____ | ______________ | ____________\n")
			for _, sw := range result.ShareWeights {
				_, _ = p.Fprintf(w, "%-10s | %-20s | %s | %14.2f | %s\n",
					sw.Region, sw.Technology, strconv.Itoa(sw.Year), sw.InternalGains, Fixed(sw.ShareWeight))
			}
		}

		if len(result.Targets) > 0 {
			fmt.Fprintf(w, "\nRegion     | Gas    | Year | Target    | Carbon price | Reached\n")
			fmt.Fprintf(w, "______     | ___    | ____ | ______    | ____________ | _______\n")
			for _, target := range result.Targets {
				reached := "yes"
				if !target.Converged {
					reached = "no"
				}
				_, _ = p.Fprintf(w, "%-10s | %-6s | %s | %-9s | %12.2f | %s\n",
					target.Region, target.Gas, strconv.Itoa(target.Year), Fixed(target.Target), target.Price, reached)
			}
		}

		if len(result.Warnings) > 0 {
			fmt.Fprintf(w, "\nWarnings:\n")
			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "  - %s\n", warning)
			}
		}

		if i < len(results)-1 {
			fmt.Fprintf(w, "\n")
		}
	}
}

// CsvFormat writes the reductions of every scenario in comma-separated value format.
func CsvFormat(w io.Writer, results []forecast.Forecast) {
	fmt.Fprintf(w, `"scenario","region","gas","period","year","carbon price","effective price","raw reduction","reduction"`+"\n")
	for _, result := range results {
		for _, r := range result.Reductions {
			fmt.Fprintf(w, `"%s","%s","%s","%d","%d","%s","%s","%s","%s"`+"\n",
				quote(result.Name), quote(r.Region), quote(r.Gas), r.Period, r.Year,
				Fixed(r.CarbonPrice), Fixed(r.EffectivePrice), Fixed(r.RawReduction), Fixed(r.Reduction))
		}
	}
}

// CsvShareWeights writes the calibrated share weights in comma-separated value format.
func CsvShareWeights(w io.Writer, results []forecast.Forecast) {
	fmt.Fprintf(w, `"scenario","region","subsector","technology","service","period","year","internal gains","share weight"`+"\n")
	for _, result := range results {
		for _, sw := range result.ShareWeights {
			fmt.Fprintf(w, `"%s","%s","%s","%s","%s","%d","%d","%s","%s"`+"\n",
				quote(result.Name), quote(sw.Region), quote(sw.Subsector), quote(sw.Technology), sw.Service,
				sw.Period, sw.Year, Fixed(sw.InternalGains), Fixed(sw.ShareWeight))
		}
	}
}

func quote(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}
