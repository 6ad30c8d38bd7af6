package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
)

type hsEntry struct {
	Code        string
	Description string
	Keywords    []string
}

var hsData = []hsEntry{
	{"7208", "Flat-rolled products of iron or non-alloy steel, hot-rolled", []string{"steel", "iron", "flat-rolled"}},
	{"7601", "Unwrought aluminium", []string{"aluminium", "aluminum"}},
	{"8471", "Automatic data processing machines and units thereof", []string{"laptop", "computer", "server", "notebook"}},
	{"8517", "Telephone sets and other apparatus for transmission of data", []string{"phone", "smartphone", "router", "modem"}},
	{"8703", "Motor cars principally designed for the transport of persons", []string{"car", "automobile", "vehicle", "suv"}},
	{"6403", "Footwear with outer soles of rubber and uppers of leather", []string{"shoe", "footwear", "boot", "sneaker"}},
	{"2204", "Wine of fresh grapes, including fortified wines", []string{"wine"}},
	{"0406", "Cheese and curd", []string{"cheese", "dairy"}},
	{"1001", "Wheat and meslin", []string{"wheat", "grain"}},
	{"0203", "Meat of swine, fresh, chilled or frozen", []string{"pork", "swine", "pig"}},
	{"9503", "Tricycles, scooters and similar wheeled toys; dolls; puzzles", []string{"toy", "doll", "puzzle"}},
	{"3004", "Medicaments, in measured doses, for retail sale", []string{"medicine", "drug", "pharmaceutical", "medicament"}},
}

// HSCodeFinder suggests harmonized system headings for a product description.
type HSCodeFinder struct{}

func NewHSCodeFinder() *HSCodeFinder { return &HSCodeFinder{} }

func (h *HSCodeFinder) Name() string { return "hs_code_finder" }

func (h *HSCodeFinder) Definition() chat.ToolDefinition {
	return chat.ToolDefinition{
		Name: h.Name(),
		Description: "Find candidate HS classification codes for a product. " +
			"USE WHEN the user wants to classify a product or asks which HS or HTS code applies. " +
			"REQUIRES a plain-language product description. " +
			"RETURNS candidate 4-digit headings with their official descriptions.",
		Parameters: []chat.Parameter{
			{Name: "product", Type: "string", Description: "Plain-language product description", Required: true},
		},
	}
}

func (h *HSCodeFinder) Execute(_ context.Context, call chat.ToolCall) (chat.ToolResult, error) {
	product := strings.ToLower(stringArg(call.Args, "product"))
	words := strings.Fields(product)

	var matches []map[string]any
	for _, e := range hsData {
		if matchesKeywords(e.Keywords, words) {
			matches = append(matches, map[string]any{
				"code":        e.Code,
				"description": e.Description,
			})
		}
	}
	if len(matches) == 0 {
		return chat.ToolResult{
			Success: false,
			Message: fmt.Sprintf("No HS heading matched %q in the bundled snapshot.", product),
		}, nil
	}
	return chat.ToolResult{
		Success: true,
		Data: map[string]any{
			"product":    product,
			"candidates": matches,
		},
	}, nil
}

func matchesKeywords(keywords, words []string) bool {
	for _, kw := range keywords {
		for _, w := range words {
			if strings.Contains(w, kw) || strings.Contains(kw, w) && len(w) > 3 {
				return true
			}
		}
	}
	return false
}
