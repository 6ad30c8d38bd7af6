package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
)

// Fallback produces degraded but useful answers when the model or a tool
// cannot. Responses point the user at authoritative public sources for
// the topic their question touches.
type Fallback struct{}

// NewFallback creates the fallback responder.
func NewFallback() *Fallback { return &Fallback{} }

// directResponseText is shown for greetings and filler the model does
// not need a tool for when the model itself is unavailable.
const directResponseText = "I'm here to help! How else can I assist you today?"

// DirectResponseTool is the marker recorded in place of a tool name when
// a query was answered without invoking any tool.
const DirectResponseTool = "direct_response"

var smallTalk = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	"thanks", "thank you", "bye", "goodbye", "how are you",
}

// resource is one official source worth pointing the user at: where it
// lives, what it holds and why it fits the topic.
type resource struct {
	name        string
	url         string
	description string
	relevance   string
}

// topic groups keyword triggers with the public resources worth
// suggesting for that subject.
type topic struct {
	keywords  []string
	label     string
	resources []resource
}

var topics = []topic{
	{
		keywords: []string{"tariff", "duty", "rate", "import tax"},
		label:    "tariff rates",
		resources: []resource{
			{
				name:        "WTO Tariff Database",
				url:         "https://www.wto.org/english/tratop_e/tariffs_e/tariff_data_e.htm",
				description: "Official World Trade Organization tariff data and analysis",
				relevance:   "Comprehensive global tariff information",
			},
			{
				name:        "USITC DataWeb",
				url:         "https://dataweb.usitc.gov",
				description: "U.S. International Trade Commission trade and tariff data",
				relevance:   "Detailed U.S. import and export statistics",
			},
		},
	},
	{
		keywords: []string{"hs code", "hts", "harmonized", "classification", "schedule b"},
		label:    "product classification",
		resources: []resource{
			{
				name:        "WCO HS Nomenclature",
				url:         "https://www.wcoomd.org/en/topics/nomenclature/overview.aspx",
				description: "World Customs Organization Harmonized System classification",
				relevance:   "The official HS code classification system",
			},
			{
				name:        "USITC HTS Search",
				url:         "https://hts.usitc.gov",
				description: "U.S. Harmonized Tariff Schedule search tool",
				relevance:   "Search and browse U.S. tariff classifications",
			},
			{
				name:        "Census Bureau Schedule B",
				url:         "https://www.census.gov/foreign-trade/schedules/b/",
				description: "U.S. export classification codes",
				relevance:   "Classification for U.S. exports",
			},
		},
	},
	{
		keywords: []string{"agreement", "fta", "usmca", "nafta", "trade deal", "origin"},
		label:    "trade agreements",
		resources: []resource{
			{
				name:        "USTR Trade Agreements",
				url:         "https://ustr.gov/trade-agreements",
				description: "U.S. Trade Representative agreements and negotiations",
				relevance:   "U.S. trade agreement details and texts",
			},
			{
				name:        "Trade.gov FTA Portal",
				url:         "https://www.trade.gov/fta",
				description: "U.S. Free Trade Agreement resources and guidance",
				relevance:   "Practical FTA utilization information",
			},
		},
	},
	{
		keywords: []string{"export", "import", "customs", "compliance", "country"},
		label:    "trade compliance",
		resources: []resource{
			{
				name:        "Trade.gov Country Commercial Guides",
				url:         "https://www.trade.gov/country-commercial-guides",
				description: "Market conditions and opportunities by country",
				relevance:   "Detailed country market analysis",
			},
			{
				name:        "USITC DataWeb",
				url:         "https://dataweb.usitc.gov",
				description: "U.S. International Trade Commission trade and tariff data",
				relevance:   "Detailed U.S. import and export statistics",
			},
		},
	},
}

// IsSmallTalk reports whether the query is a greeting or filler that
// needs no lookup or model call.
func (f *Fallback) IsSmallTalk(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.TrimRight(q, "!.?")
	for _, phrase := range smallTalk {
		if q == phrase {
			return true
		}
	}
	return false
}

// SmallTalk returns the canned reply for greetings and filler.
func (f *Fallback) SmallTalk() chat.Response {
	return chat.Response{
		Text:      directResponseText,
		ToolsUsed: []string{DirectResponseTool},
		Success:   true,
	}
}

// classify finds the first topic whose keywords appear in the query.
func classify(query string) (topic, bool) {
	q := strings.ToLower(query)
	for _, t := range topics {
		for _, kw := range t.keywords {
			if strings.Contains(q, kw) {
				return t, true
			}
		}
	}
	return topic{}, false
}

// DataNotFound builds the reply for a tool that ran but found nothing,
// steering the user toward sources that may hold the answer.
func (f *Fallback) DataNotFound(query string, result chat.ToolResult) chat.Response {
	var b strings.Builder
	if result.Message != "" {
		b.WriteString(result.Message)
	} else {
		b.WriteString("I couldn't find data matching your question.")
	}
	appendResources(&b, query)
	return chat.Response{
		Text:      b.String(),
		ToolsUsed: []string{result.ToolName},
		Success:   true,
	}
}

// Generic builds a degraded reply when the model or every relevant tool
// is unavailable.
func (f *Fallback) Generic(query string) chat.Response {
	var b strings.Builder
	b.WriteString("I'm unable to fully process your question right now. " +
		"You can try rephrasing it with a specific product, country or agreement name, " +
		"or ask again in a few minutes.")
	appendResources(&b, query)
	return chat.Response{
		Text:      b.String(),
		ToolsUsed: []string{},
		Success:   false,
	}
}

// ForError maps a pipeline error to the response returned to the user.
// Technical detail stays in logs; the user sees the kind's message plus
// topic resources where they help.
func (f *Fallback) ForError(query string, err error) chat.Response {
	var ce *chat.Error
	text := "Something went wrong. Please try again."
	if errors.As(err, &ce) {
		text = ce.UserMessage()
	}
	var b strings.Builder
	b.WriteString(text)
	if kind, ok := chat.ErrKind(err); ok && (kind == chat.KindServiceUnavailable || kind == chat.KindBusy || kind == chat.KindToolExecution) {
		appendResources(&b, query)
	}
	return chat.Response{
		Text:      b.String(),
		ToolsUsed: []string{},
		Success:   false,
	}
}

// appendResources renders the topic's resource list: name and URL on
// the lead line, description and relevance indented beneath it.
func appendResources(b *strings.Builder, query string) {
	t, ok := classify(query)
	if !ok {
		return
	}
	fmt.Fprintf(b, " In the meantime, these official resources cover %s:", t.label)
	for _, r := range t.resources {
		fmt.Fprintf(b, "\n- %s (%s)\n  %s. %s.", r.name, r.url, r.description, r.relevance)
	}
}
