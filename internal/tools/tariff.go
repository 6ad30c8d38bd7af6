// Package tools contains the reference tool implementations backed by a
// bundled snapshot of public trade data. Each tool returns a soft
// failure when the snapshot holds nothing for the request, so the
// pipeline can answer with resource suggestions instead of an error.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
)

// tariffEntry is one row of the bundled tariff snapshot.
type tariffEntry struct {
	Importer    string
	HSPrefix    string
	Description string
	MFNRate     string
	Notes       string
}

var tariffData = []tariffEntry{
	{"US", "7208", "Flat-rolled iron or non-alloy steel", "0%", "Section 232 additional duty of 25% may apply"},
	{"US", "7601", "Unwrought aluminium", "2.6%", "Section 232 additional duty of 10% may apply"},
	{"US", "8471", "Automatic data processing machines", "0%", ""},
	{"US", "6403", "Footwear with leather uppers", "8.5%", ""},
	{"US", "2204", "Wine of fresh grapes", "6.3c/L", ""},
	{"EU", "7208", "Flat-rolled iron or non-alloy steel", "0%", "Safeguard quota may apply"},
	{"EU", "8703", "Motor cars for transport of persons", "10%", ""},
	{"EU", "0406", "Cheese and curd", "EUR 185.2/100kg", "Tariff-rate quotas apply"},
	{"CN", "1001", "Wheat and meslin", "65%", "In-quota rate 1%"},
	{"CN", "8703", "Motor cars for transport of persons", "15%", ""},
	{"JP", "0203", "Meat of swine", "4.3%", "Gate price system applies"},
	{"CA", "8703", "Motor cars for transport of persons", "6.1%", "USMCA originating goods enter free"},
}

// TariffLookup resolves MFN tariff rates by importing country and HS code.
type TariffLookup struct{}

func NewTariffLookup() *TariffLookup { return &TariffLookup{} }

func (t *TariffLookup) Name() string { return "tariff_lookup" }

func (t *TariffLookup) Definition() chat.ToolDefinition {
	return chat.ToolDefinition{
		Name: t.Name(),
		Description: "Look up the MFN tariff rate a country applies to a product. " +
			"USE WHEN the user asks for a duty or tariff rate on a specific product and country. " +
			"REQUIRES the importing country (ISO code or name) and an HS code or its first 4 digits. " +
			"RETURNS the rate, product description and any additional duty notes.",
		Parameters: []chat.Parameter{
			{Name: "importer", Type: "string", Description: "Importing country, e.g. US, EU, CN", Required: true},
			{Name: "hs_code", Type: "string", Description: "HS code, at least the first 4 digits", Required: true},
		},
	}
}

func (t *TariffLookup) Execute(_ context.Context, call chat.ToolCall) (chat.ToolResult, error) {
	importer := normalizeCountry(stringArg(call.Args, "importer"))
	hs := digitsOnly(stringArg(call.Args, "hs_code"))
	if len(hs) < 4 {
		return chat.ToolResult{
			Success: false,
			Message: "An HS code needs at least 4 digits to look up a rate.",
		}, nil
	}

	prefix := hs[:4]
	for _, e := range tariffData {
		if e.Importer == importer && e.HSPrefix == prefix {
			return chat.ToolResult{
				Success: true,
				Data: map[string]any{
					"importer":    e.Importer,
					"hs_code":     prefix,
					"description": e.Description,
					"mfn_rate":    e.MFNRate,
					"notes":       e.Notes,
				},
			}, nil
		}
	}
	return chat.ToolResult{
		Success: false,
		Message: fmt.Sprintf("No tariff data for HS %s into %s in the bundled snapshot.", prefix, importer),
	}, nil
}

// countryAliases maps common names to the codes the snapshot is keyed by.
var countryAliases = map[string]string{
	"UNITED STATES": "US", "USA": "US", "AMERICA": "US",
	"EUROPEAN UNION": "EU", "EUROPE": "EU",
	"CHINA": "CN", "JAPAN": "JP", "CANADA": "CA", "MEXICO": "MX",
	"KOREA": "KR", "SOUTH KOREA": "KR",
	"UNITED KINGDOM": "GB", "UK": "GB", "BRITAIN": "GB",
	"AUSTRALIA": "AU", "VIETNAM": "VN", "GERMANY": "EU", "FRANCE": "EU",
}

func normalizeCountry(s string) string {
	up := strings.ToUpper(strings.TrimSpace(s))
	if code, ok := countryAliases[up]; ok {
		return code
	}
	return up
}

func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
