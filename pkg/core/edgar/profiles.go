package edgar

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// =============================================================================
// FILING TYPE PROFILES
// Anchor ids that filers commonly put on well-known tables, keyed by form type.
// =============================================================================

var (
	annualAnchors = []string{
		// balance sheets
		"consolidated_balance_sheets", "consolidated_statement_of_financial_position",
		"balance_sheets", "statement_of_financial_position", "balance_sheet",
		// income statements
		"consolidated_statements_of_operations", "consolidated_statements_of_income",
		"statements_of_operations", "statements_of_income", "income_statements",
		"consolidated_statements_of_earnings", "statements_of_earnings",
		"consolidated_statements_of_comprehensive_income", "statements_of_comprehensive_income",
		// cash flows
		"consolidated_statements_of_cash_flows", "statements_of_cash_flows", "cash_flow_statements",
		// equity
		"consolidated_statements_of_changes_in_equity", "statements_of_changes_in_equity",
		"consolidated_statements_of_stockholders_equity", "statements_of_stockholders_equity",
		"consolidated_statements_of_shareholders_equity", "statements_of_shareholders_equity",
		"consolidated_statements_of_redeemable_noncontrolling_interest_and_equity",
		"consolidated_statements_of_partners_equity", "statements_of_partners_equity",
		"consolidated_statements_of_members_equity", "statements_of_members_equity",
		// other
		"financial_statements", "financial_highlights", "selected_financial_data",
		"financial_data", "ratio_of_earnings", "unaudited_quarterly_financial_data",
		"summary_of_significant_accounting_policies",
		"notes_to_consolidated_financial_statements", "notes_to_financial_statements",
		"schedule_of_valuation_and_qualifying_accounts",
		"summary_of_quarterly_financial_data", "schedule_of_investee_earnings",
	}

	quarterlyAnchors = []string{
		"consolidated_balance_sheets", "balance_sheets", "statement_of_financial_position",
		"consolidated_statement_of_financial_position",
		"consolidated_statements_of_operations", "statements_of_operations",
		"consolidated_statements_of_income", "statements_of_income",
		"consolidated_statements_of_earnings", "statements_of_earnings",
		"consolidated_statements_of_comprehensive_income", "statements_of_comprehensive_income",
		"consolidated_statements_of_cash_flows", "statements_of_cash_flows",
		"consolidated_statements_of_changes_in_equity", "statements_of_changes_in_equity",
		"consolidated_statements_of_stockholders_equity", "statements_of_stockholders_equity",
		"consolidated_statements_of_shareholders_equity", "statements_of_shareholders_equity",
		"management_discussion_and_analysis", "management_discussion",
	}

	foreignAnnualAnchors = []string{
		"consolidated_balance_sheets", "balance_sheets", "statement_of_financial_position",
		"consolidated_statements_of_operations", "statements_of_operations",
		"consolidated_statements_of_income", "statements_of_income",
		"consolidated_statements_of_comprehensive_income", "statements_of_comprehensive_income",
		"consolidated_statements_of_cash_flows", "statements_of_cash_flows",
		"consolidated_statements_of_changes_in_equity", "statements_of_changes_in_equity",
	}

	ownershipAnchors = []string{"ownershipTable", "nonDerivativeTable", "derivativeTable", "signatureTable"}
	lateNoticeAnchors = []string{"notification_table", "explanation_narrative"}
	tenderAnchors     = []string{"summary_term_sheet", "tender_offer_terms", "source_and_amount_of_funds"}
	proxyAnchors      = []string{
		"summary_compensation_table", "director_compensation", "outstanding_equity_awards",
		"security_ownership", "performance_graph", "audit_fees", "compensation_committee_report",
	}
	amendedStatementAnchors = []string{
		"consolidated_balance_sheets", "consolidated_statements_of_operations",
		"consolidated_statements_of_cash_flows", "explanation_of_amendment",
	}
	prospectusAnchors = []string{
		"summary_table", "risk_factors", "use_of_proceeds", "capitalization",
		"dilution", "underwriting", "plan_of_distribution",
	}
)

func defaultAnchors() map[string][]string {
	return map[string][]string{
		"10-K": annualAnchors,
		"10-Q": quarterlyAnchors,
		"8-K": {
			"financial_statements", "pro_forma_financial_information", "exhibits",
			"signature", "press_release", "material_agreement_table", "amendments_table",
		},
		"20-F": append(append([]string{}, foreignAnnualAnchors...),
			"exchange_rates", "selected_financial_data", "operating_and_financial_review"),
		"40-F": foreignAnnualAnchors,
		"S-1": {
			"summary_financial_data", "capitalization", "dilution", "financial_statements",
			"balance_sheets", "statements_of_operations", "statements_of_cash_flows",
			"use_of_proceeds", "underwriting",
		},
		"S-3": {
			"summary_financial_data", "capitalization", "ratio_of_earnings", "use_of_proceeds",
			"plan_of_distribution", "prospectus_summary",
		},
		"S-4": {
			"summary_financial_data", "selected_financial_data", "unaudited_pro_forma",
			"comparative_per_share_data", "risk_factors", "the_merger", "the_companies",
		},
		"S-8": {"employee_benefit_plan", "interests_of_named_experts", "plan_information"},
		"S-11": {
			"summary_financial_data", "selected_financial_data", "distribution_policy",
			"dilution", "capitalization", "prior_performance",
		},
		"F-1": {
			"summary_financial_data", "capitalization", "dilution", "financial_statements",
			"exchange_rates", "enforceability_of_civil_liabilities",
		},
		"F-3": {
			"summary_financial_data", "capitalization", "ratio_of_earnings",
			"exchange_rates", "use_of_proceeds",
		},
		"F-4": {
			"summary_financial_data", "selected_financial_data", "unaudited_pro_forma",
			"comparative_per_share_data", "exchange_rates", "the_merger",
		},
		"3":      ownershipAnchors,
		"4":      ownershipAnchors,
		"5":      ownershipAnchors,
		"13F":    {"informationTable", "summaryTable", "signatureBlock"},
		"13F-HR": {"informationTable", "coverPage", "signatureBlock"},
		"13F-NT": {"coverPage", "signatureBlock"},
		"SC 13D": {"transactionTable", "ownershipTable", "signatureTable"},
		"SC 13G": {"ownershipTable", "signatureTable"},
		"DEF 14A": append(append([]string{}, proxyAnchors...),
			"proposal_table", "beneficial_ownership", "executive_compensation", "option_exercises"),
		"PRE 14A": proxyAnchors,
		"SC TO-I": tenderAnchors,
		"SC TO-T": tenderAnchors,
		"11-K": {
			"financial_statements", "schedule_of_assets", "schedule_of_reportable_transactions",
			"net_assets_available_for_benefits", "changes_in_net_assets",
		},
		"NT 10-K": lateNoticeAnchors,
		"NT 10-Q": lateNoticeAnchors,
		"6-K": {
			"financial_statements", "management_report", "financial_highlights",
			"financial_data", "press_release",
		},
		"10-K/A": amendedStatementAnchors,
		"10-Q/A": amendedStatementAnchors,
		"8-K/A":  {"explanation_of_amendment", "revised_disclosure"},
		"424B1":  prospectusAnchors,
		"424B2": {
			"summary_table", "risk_factors", "use_of_proceeds", "capitalization",
			"description_of_securities",
		},
		"424B3":   {"summary_table", "risk_factors", "use_of_proceeds", "plan_of_distribution"},
		"424B4":   prospectusAnchors,
		"424B5":   {"summary_table", "risk_factors", "use_of_proceeds", "description_of_securities"},
		"PX14A6G": {"solicitation_notice", "proposal_table", "supporting_statement"},
		"DEFA14A": {"additional_soliciting_material", "voting_instructions"},
		"DEFM14A": {
			"summary_term_sheet", "the_merger", "merger_agreement_summary",
			"comparison_of_stockholder_rights", "voting_securities",
		},
		"DEFR14A": {
			"summary_compensation_table", "director_compensation", "outstanding_equity_awards",
			"revision_explanation",
		},
		"N-CSR": {
			"schedule_of_investments", "statement_of_assets", "statement_of_operations",
			"financial_highlights",
		},
		"N-PORT": {"general_information", "portfolio_investments", "explanatory_notes"},
		"N-PX":   {"proxy_voting_record", "voting_summary"},
	}
}

var (
	statementKeywords = []string{
		"balance sheet", "statement of operations", "income statement",
		"statement of cash flow", "statement of equity", "financial position",
	}
	textOnlyKeywords = []string{"statement of earnings", "statement of financial condition"}

	defaultTextTablePatterns = []string{
		`[^|\s][ \t]*\|[ \t]*[^|\s]`,
		`\S[ \t]{2,}\S`,
		`^[^,]*,[^,]*,`,
		`\S[ \t]{3,}\S`,
	}
)

// StatementKeywords returns the phrases matched case-insensitively against
// markup text in the keyword-proximity table tier.
func StatementKeywords() []string {
	return append([]string(nil), statementKeywords...)
}

// TextStatementKeywords returns the phrases that start a plain-text table
// when seen on a line.
func TextStatementKeywords() []string {
	return append(StatementKeywords(), textOnlyKeywords...)
}

// DefaultTextTablePatterns returns the expressions that classify a plain-text
// line as a table row: pipe delimited cells, two or more spaces between
// tokens, two or more commas, or three or more spaces between tokens.
func DefaultTextTablePatterns() []string {
	return append([]string(nil), defaultTextTablePatterns...)
}

// Profiles is the read-only registry of per-form anchors, statement keywords
// and text-table line patterns. The With* methods return modified copies.
type Profiles struct {
	anchors      map[string][]string
	keywords     []*regexp.Regexp
	textKeywords []string
	textPatterns []*regexp.Regexp
}

// DefaultProfiles returns the built-in registry.
func DefaultProfiles() Profiles {
	p := Profiles{
		anchors:      defaultAnchors(),
		textKeywords: TextStatementKeywords(),
	}
	p.keywords = compileKeywords(statementKeywords)
	patterns, err := compilePatterns(defaultTextTablePatterns)
	if err != nil {
		panic(err)
	}
	p.textPatterns = patterns
	return p
}

// WithAnchors returns a copy whose anchors for the given form types are replaced.
func (p Profiles) WithAnchors(overrides map[string][]string) Profiles {
	anchors := make(map[string][]string, len(p.anchors)+len(overrides))
	for k, v := range p.anchors {
		anchors[k] = v
	}
	for k, v := range overrides {
		anchors[strings.TrimSpace(k)] = append([]string(nil), v...)
	}
	p.anchors = anchors
	return p
}

// WithGroupedAnchors flattens section-grouped anchors ({"10-K": {"balance_sheet": [...]}})
// in section-name order and applies them with WithAnchors.
func (p Profiles) WithGroupedAnchors(grouped map[string]map[string][]string) Profiles {
	flat := make(map[string][]string, len(grouped))
	for form, groups := range grouped {
		names := make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)
		var ids []string
		for _, name := range names {
			ids = append(ids, groups[name]...)
		}
		flat[form] = ids
	}
	return p.WithAnchors(flat)
}

// WithTextTablePatterns returns a copy using the given line patterns.
func (p Profiles) WithTextTablePatterns(patterns []string) (Profiles, error) {
	compiled, err := compilePatterns(patterns)
	if err != nil {
		return p, err
	}
	p.textPatterns = compiled
	return p, nil
}

// Anchors returns the anchor ids for a form type. An amendment without its own
// entry ("10-K/A") uses the base form's anchors.
func (p Profiles) Anchors(filingType string) ([]string, bool) {
	filingType = strings.TrimSpace(filingType)
	if ids, ok := p.anchors[filingType]; ok {
		return ids, true
	}
	if base, ok := strings.CutSuffix(filingType, "/A"); ok {
		if ids, ok := p.anchors[base]; ok {
			return ids, true
		}
	}
	return nil, false
}

// Known reports whether a form type has a profile.
func (p Profiles) Known(filingType string) bool {
	_, ok := p.Anchors(filingType)
	return ok
}

// FormTypes lists the profiled form types in sorted order.
func (p Profiles) FormTypes() []string {
	out := make([]string, 0, len(p.anchors))
	for k := range p.anchors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (p Profiles) isTextTableLine(line string) bool {
	for _, re := range p.textPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func (p Profiles) textKeywordIn(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range p.textKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func compileKeywords(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
	}
	return out
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, eris.Wrapf(err, "edgar: compile text table pattern %q", pat)
		}
		out = append(out, re)
	}
	return out, nil
}
