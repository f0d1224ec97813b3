// Package cost estimates the fixed monthly charges of a VPC topology.
package cost

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/lex00/ou-network-go/internal/topology"
)

// HoursPerMonth is the billing month used by AWS price pages.
var HoursPerMonth = decimal.NewFromInt(730)

// Rates are the hourly on-demand prices, in USD, of one region.
type Rates struct {
	NATGatewayHour    decimal.Decimal
	TgwAttachmentHour decimal.Decimal
}

// regionRates holds published list prices. Data processing charges depend on
// traffic and are not estimated.
var regionRates = map[string]Rates{
	"us-east-1":    {NATGatewayHour: decimal.RequireFromString("0.045"), TgwAttachmentHour: decimal.RequireFromString("0.05")},
	"us-east-2":    {NATGatewayHour: decimal.RequireFromString("0.045"), TgwAttachmentHour: decimal.RequireFromString("0.05")},
	"us-west-2":    {NATGatewayHour: decimal.RequireFromString("0.045"), TgwAttachmentHour: decimal.RequireFromString("0.05")},
	"eu-west-1":    {NATGatewayHour: decimal.RequireFromString("0.048"), TgwAttachmentHour: decimal.RequireFromString("0.05")},
	"eu-central-1": {NATGatewayHour: decimal.RequireFromString("0.052"), TgwAttachmentHour: decimal.RequireFromString("0.06")},
}

// RatesFor returns the prices of region.
func RatesFor(region string) (Rates, error) {
	r, ok := regionRates[region]
	if !ok {
		return Rates{}, fmt.Errorf("no prices for region %q (known: %v)", region, Regions())
	}
	return r, nil
}

// Regions returns the regions with known prices.
func Regions() []string {
	regions := make([]string, 0, len(regionRates))
	for r := range regionRates {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

// Line is one billable item of an estimate.
type Line struct {
	Label    string          `json:"label"`
	Measure  string          `json:"measure"`
	Quantity decimal.Decimal `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	Monthly  decimal.Decimal `json:"monthly"`
}

// Estimate is the monthly fixed cost of one VPC.
type Estimate struct {
	Role    string          `json:"role"`
	Region  string          `json:"region"`
	Lines   []Line          `json:"lines"`
	Monthly decimal.Decimal `json:"monthly"`
}

// ForDecision estimates the NAT gateways and Transit Gateway attachment of a
// VPC built from d.
func ForDecision(d topology.Decision, region string) (*Estimate, error) {
	rates, err := RatesFor(region)
	if err != nil {
		return nil, err
	}
	est := &Estimate{Role: d.Role.String(), Region: region, Monthly: decimal.Zero}
	if d.NATGatewayCount > 0 {
		est.add("NAT gateway", int64(d.NATGatewayCount), rates.NATGatewayHour)
	}
	est.add("Transit Gateway attachment", 1, rates.TgwAttachmentHour)
	return est, nil
}

func (e *Estimate) add(label string, count int64, hourly decimal.Decimal) {
	quantity := decimal.NewFromInt(count).Mul(HoursPerMonth)
	monthly := quantity.Mul(hourly).Round(2)
	e.Lines = append(e.Lines, Line{
		Label:    label,
		Measure:  "hours",
		Quantity: quantity,
		Rate:     hourly,
		Monthly:  monthly,
	})
	e.Monthly = e.Monthly.Add(monthly)
}
