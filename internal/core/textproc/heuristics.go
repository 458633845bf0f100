package textproc

import (
	"regexp"
	"strings"
)

// categoryRule maps vendor/description keywords to an expense category and
// the general ledger code bookkeepers expect for it.
type categoryRule struct {
	Category string
	GLCode   string
	Keywords []string
}

var categoryRules = []categoryRule{
	{"software", "4550", []string{"software", "saas", "license", "licentie", "subscription", "abonnement", "github", "gitlab", "atlassian", "jetbrains", "microsoft", "adobe", "figma", "slack", "notion", "openai", "anthropic"}},
	{"hosting", "4551", []string{"hosting", "server", "cloud", "aws", "amazon web services", "azure", "google cloud", "digitalocean", "hetzner", "transip", "vercel", "netlify", "cloudflare", "domain", "domein"}},
	{"advertising", "4560", []string{"advertising", "advertentie", "marketing", "google ads", "facebook", "meta platforms", "linkedin", "campaign", "seo"}},
	{"telecom", "4530", []string{"telecom", "telefoon", "mobile", "mobiel", "vodafone", "kpn", "t-mobile", "odido", "internet", "ziggo"}},
	{"travel", "4510", []string{"travel", "reis", "hotel", "flight", "vlucht", "train", "trein", "ns.nl", "taxi", "uber", "parking", "parkeren", "fuel", "brandstof", "shell", "tinq"}},
	{"insurance", "4540", []string{"insurance", "verzekering", "aansprakelijkheid", "liability"}},
	{"rent", "4100", []string{"rent", "huur", "lease", "office space", "kantoorruimte"}},
	{"office_supplies", "4520", []string{"office", "kantoor", "supplies", "benodigdheden", "stationery", "paper", "printer", "bol.com", "staples"}},
	{"professional_services", "4570", []string{"consulting", "consultancy", "advies", "accountant", "boekhouder", "lawyer", "advocaat", "notaris", "audit", "juridisch"}},
	{"utilities", "4110", []string{"electricity", "elektriciteit", "gas", "water", "energie", "energy", "eneco", "vattenfall", "essent"}},
}

// ClassifyExpenseCategory picks a category from vendor name plus line item
// text. Returns "other" and its GL code when no rule fires.
func ClassifyExpenseCategory(vendorName string, lineTexts []string) (category, glCode string) {
	haystack := strings.ToLower(vendorName + " " + strings.Join(lineTexts, " "))
	for _, rule := range categoryRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(haystack, kw) {
				return rule.Category, rule.GLCode
			}
		}
	}
	return "other", "4599"
}

var recurringKeywords = []string{
	"subscription", "abonnement", "monthly fee", "maandelijks", "per month",
	"per maand", "recurring", "terugkerend", "billing period", "factuurperiode",
	"service period", "periode",
}

var (
	annualRe    = regexp.MustCompile(`(?i)\b(annual|yearly|jaarlijks|per year|per jaar|12 months|12 maanden)\b`)
	quarterlyRe = regexp.MustCompile(`(?i)\b(quarterly|per quarter|kwartaal|3 months|3 maanden)\b`)
	weeklyRe    = regexp.MustCompile(`(?i)\b(weekly|wekelijks|per week)\b`)
	// e.g. "01-01-2024 t/m 31-01-2024" or "Jan 1 - Jan 31"
	dateRangeRe = regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\s*(?:-|t/m|tot|to|through)\s*\d{1,2}[-/]\d{1,2}[-/]\d{2,4}`)
)

// DetectRecurringFromText looks for subscription language in the raw invoice
// text and guesses the billing frequency. Monthly is the default frequency
// once recurrence is detected, because most subscriptions bill monthly.
func DetectRecurringFromText(text string) (recurring bool, frequency string) {
	lower := strings.ToLower(text)
	hit := dateRangeRe.MatchString(lower)
	if !hit {
		for _, kw := range recurringKeywords {
			if strings.Contains(lower, kw) {
				hit = true
				break
			}
		}
	}
	if !hit {
		return false, ""
	}
	switch {
	case annualRe.MatchString(text):
		return true, "annual"
	case quarterlyRe.MatchString(text):
		return true, "quarterly"
	case weeklyRe.MatchString(text):
		return true, "weekly"
	}
	return true, "monthly"
}

var serviceKeywords = []string{
	"service", "dienst", "consulting", "consultancy", "subscription",
	"abonnement", "license", "licentie", "support", "maintenance", "onderhoud",
	"hosting", "saas", "software", "development", "advies", "fee",
}

// LooksLikeServices reports whether the invoice lines describe services
// rather than goods. Drives the import-VAT versus reverse-charge split for
// non-EU vendors.
func LooksLikeServices(lineTexts []string) bool {
	haystack := strings.ToLower(strings.Join(lineTexts, " "))
	for _, kw := range serviceKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

var creditNoteRe = regexp.MustCompile(`credit\s*note|creditnota|credit\s*memo|gutschrift|avoir`)

// ClassifyDocumentType tells credit notes, proformas and payable bills apart
// from plain expense receipts. A negative total marks a credit note even
// without a label; a due date or stated payment terms mark a bill.
func ClassifyDocumentType(text string, total float64, dueDate string) string {
	lower := strings.ToLower(text)
	switch {
	case creditNoteRe.MatchString(lower) || total < 0:
		return "credit_note"
	case strings.Contains(lower, "proforma") || strings.Contains(lower, "pro forma") || strings.Contains(lower, "pro-forma"):
		return "proforma"
	case dueDate != "" || strings.Contains(lower, "payment terms") || strings.Contains(lower, "betalingstermijn"):
		return "bill"
	}
	return "expense"
}
