package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
)

type agreement struct {
	Name    string
	Type    string
	InForce string
	Parties []string
}

var agreementData = []agreement{
	{"USMCA", "free trade agreement", "2020-07-01", []string{"US", "CA", "MX"}},
	{"CPTPP", "free trade agreement", "2018-12-30", []string{"JP", "CA", "MX", "AU", "VN", "SG", "NZ", "CL", "PE", "MY", "BN", "GB"}},
	{"EU-Japan EPA", "economic partnership agreement", "2019-02-01", []string{"EU", "JP"}},
	{"KORUS", "free trade agreement", "2012-03-15", []string{"US", "KR"}},
	{"EU-Canada CETA", "comprehensive economic and trade agreement", "2017-09-21", []string{"EU", "CA"}},
	{"RCEP", "free trade agreement", "2022-01-01", []string{"CN", "JP", "KR", "AU", "NZ", "VN", "SG", "MY", "TH", "ID", "PH"}},
	{"UK-Australia FTA", "free trade agreement", "2023-05-31", []string{"GB", "AU"}},
}

// AgreementLookup finds trade agreements covering one or two countries.
type AgreementLookup struct{}

func NewAgreementLookup() *AgreementLookup { return &AgreementLookup{} }

func (a *AgreementLookup) Name() string { return "agreement_lookup" }

func (a *AgreementLookup) Definition() chat.ToolDefinition {
	return chat.ToolDefinition{
		Name: a.Name(),
		Description: "Find trade agreements a country participates in. " +
			"USE WHEN the user asks whether two countries have a trade agreement, or which agreements cover a country. " +
			"REQUIRES one country; a second country narrows results to agreements covering both. " +
			"RETURNS matching agreements with their type, entry-into-force date and parties.",
		Parameters: []chat.Parameter{
			{Name: "country", Type: "string", Description: "First country (ISO code or name)", Required: true},
			{Name: "partner", Type: "string", Description: "Optional second country to match against", Required: false},
		},
	}
}

func (a *AgreementLookup) Execute(_ context.Context, call chat.ToolCall) (chat.ToolResult, error) {
	country := normalizeCountry(stringArg(call.Args, "country"))
	partner := normalizeCountry(stringArg(call.Args, "partner"))

	var matches []map[string]any
	for _, ag := range agreementData {
		if !hasParty(ag, country) {
			continue
		}
		if partner != "" && !hasParty(ag, partner) {
			continue
		}
		matches = append(matches, map[string]any{
			"name":     ag.Name,
			"type":     ag.Type,
			"in_force": ag.InForce,
			"parties":  strings.Join(ag.Parties, ", "),
		})
	}
	if len(matches) == 0 {
		msg := fmt.Sprintf("No agreements involving %s in the bundled snapshot.", country)
		if partner != "" {
			msg = fmt.Sprintf("No agreements covering both %s and %s in the bundled snapshot.", country, partner)
		}
		return chat.ToolResult{Success: false, Message: msg}, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i]["name"].(string) < matches[j]["name"].(string)
	})
	return chat.ToolResult{
		Success: true,
		Data: map[string]any{
			"country":    country,
			"partner":    partner,
			"agreements": matches,
		},
	}, nil
}

func hasParty(ag agreement, code string) bool {
	for _, p := range ag.Parties {
		if p == code {
			return true
		}
	}
	return false
}
