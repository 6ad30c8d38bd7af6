package tools

import (
	"context"
	"fmt"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
)

type complianceProfile struct {
	Importer     string
	HSPrefix     string
	Requirements []string
	Agencies     []string
}

var complianceData = []complianceProfile{
	{"US", "7208", []string{"Steel import license (SIMA)", "Section 232 exclusion check", "Entry summary CBP Form 7501"}, []string{"CBP", "Commerce/ITA"}},
	{"US", "3004", []string{"FDA drug listing and establishment registration", "Prior notice of arrival"}, []string{"FDA", "CBP"}},
	{"US", "0406", []string{"FDA food facility registration", "USDA import permit for some cheeses", "Tariff-rate quota license"}, []string{"FDA", "USDA", "CBP"}},
	{"US", "8703", []string{"EPA emissions certificate", "DOT safety conformity (HS-7 declaration)"}, []string{"EPA", "NHTSA", "CBP"}},
	{"EU", "3004", []string{"EMA or national marketing authorization", "Qualified person batch certification"}, []string{"EMA"}},
	{"EU", "0203", []string{"Veterinary border inspection", "Health certificate from approved establishment"}, []string{"DG SANTE"}},
}

// ComplianceAnalysis lists import requirements for a product and destination.
type ComplianceAnalysis struct{}

func NewComplianceAnalysis() *ComplianceAnalysis { return &ComplianceAnalysis{} }

func (c *ComplianceAnalysis) Name() string { return "compliance_analysis" }

func (c *ComplianceAnalysis) Definition() chat.ToolDefinition {
	return chat.ToolDefinition{
		Name: c.Name(),
		Description: "List regulatory requirements for importing a product. " +
			"USE WHEN the user asks what is needed to import a product, or about permits, licenses or agency requirements. " +
			"REQUIRES the importing country and an HS code (first 4 digits suffice). " +
			"RETURNS the known requirements and the agencies that enforce them.",
		Parameters: []chat.Parameter{
			{Name: "importer", Type: "string", Description: "Importing country, e.g. US, EU", Required: true},
			{Name: "hs_code", Type: "string", Description: "HS code, at least the first 4 digits", Required: true},
		},
	}
}

func (c *ComplianceAnalysis) Execute(_ context.Context, call chat.ToolCall) (chat.ToolResult, error) {
	importer := normalizeCountry(stringArg(call.Args, "importer"))
	hs := digitsOnly(stringArg(call.Args, "hs_code"))
	if len(hs) < 4 {
		return chat.ToolResult{
			Success: false,
			Message: "An HS code needs at least 4 digits for a compliance check.",
		}, nil
	}

	prefix := hs[:4]
	for _, p := range complianceData {
		if p.Importer == importer && p.HSPrefix == prefix {
			return chat.ToolResult{
				Success: true,
				Data: map[string]any{
					"importer":     p.Importer,
					"hs_code":      prefix,
					"requirements": p.Requirements,
					"agencies":     p.Agencies,
				},
			}, nil
		}
	}
	return chat.ToolResult{
		Success: false,
		Message: fmt.Sprintf("No compliance profile for HS %s into %s in the bundled snapshot.", prefix, importer),
	}, nil
}
