package model

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	U "attribution/util"
)

// Channel categories. IsPaidChannel is derived from the category alone.
const (
	ChannelCategoryPaid     = "paid"
	ChannelCategoryOrganic  = "organic"
	ChannelCategoryDirect   = "direct"
	ChannelCategoryEmail    = "email"
	ChannelCategoryReferral = "referral"
)

// ChannelRule maps raw tracking strings to the canonical channel taxonomy.
// Patterns are case-insensitive regular expressions anchored to the full
// value. A nil pattern is a constraint that the corresponding input field
// must be absent; it is not a wildcard.
type ChannelRule struct {
	ID uint64 `json:"id"`

	SourcePattern   *string `json:"source_pattern"`
	MediumPattern   *string `json:"medium_pattern"`
	CampaignPattern *string `json:"campaign_pattern"`
	ContentPattern  *string `json:"content_pattern"`

	Channel    string `json:"channel"`
	SubChannel string `json:"sub_channel"`
	Category   string `json:"category"`
	Platform   string `json:"platform"`

	Priority int  `json:"priority"`
	Active   bool `json:"is_active"`

	// Seq is the insertion order in the rule store; it breaks priority
	// ties so classification stays deterministic.
	Seq int `json:"seq"`
}

type compiledRule struct {
	rule     ChannelRule
	source   *regexp.Regexp
	medium   *regexp.Regexp
	campaign *regexp.Regexp
	content  *regexp.Regexp
}

// ChannelRuleSet is an immutable, compiled snapshot of the active channel
// rules. Load once per batch; a rule change mid-run must not affect records
// already resolved.
type ChannelRuleSet struct {
	rules []compiledRule
}

// CompileChannelRules builds a snapshot from the stored rules. Inactive
// rules are dropped. A rule with an invalid pattern is skipped with a
// warning rather than failing the batch; classification then falls through
// to lower-priority rules.
func CompileChannelRules(rules []ChannelRule) *ChannelRuleSet {
	set := &ChannelRuleSet{rules: make([]compiledRule, 0, len(rules))}
	for i, rule := range rules {
		if !rule.Active {
			continue
		}
		if rule.Seq == 0 {
			rule.Seq = i
		}
		compiled, err := compileRule(rule)
		if err != nil {
			log.WithFields(log.Fields{"rule_id": rule.ID, "channel": rule.Channel}).
				WithError(err).Warn("Skipping channel rule with invalid pattern.")
			continue
		}
		set.rules = append(set.rules, compiled)
	}
	// Highest priority first; insertion order breaks ties.
	sort.SliceStable(set.rules, func(i, j int) bool {
		if set.rules[i].rule.Priority != set.rules[j].rule.Priority {
			return set.rules[i].rule.Priority > set.rules[j].rule.Priority
		}
		return set.rules[i].rule.Seq < set.rules[j].rule.Seq
	})
	return set
}

func compileRule(rule ChannelRule) (compiledRule, error) {
	compiled := compiledRule{rule: rule}
	var err error
	if compiled.source, err = compilePattern(rule.SourcePattern); err != nil {
		return compiled, errors.Wrap(err, "source pattern")
	}
	if compiled.medium, err = compilePattern(rule.MediumPattern); err != nil {
		return compiled, errors.Wrap(err, "medium pattern")
	}
	if compiled.campaign, err = compilePattern(rule.CampaignPattern); err != nil {
		return compiled, errors.Wrap(err, "campaign pattern")
	}
	if compiled.content, err = compilePattern(rule.ContentPattern); err != nil {
		return compiled, errors.Wrap(err, "content pattern")
	}
	return compiled, nil
}

func compilePattern(pattern *string) (*regexp.Regexp, error) {
	if pattern == nil {
		return nil, nil
	}
	return regexp.Compile("(?i)^(" + *pattern + ")$")
}

// matchField applies the nil-pattern asymmetry: a nil pattern matches only
// an absent value. A present pattern is evaluated against the value, absent
// values included, so a rule that does not care about a field says ".*".
func matchField(pattern *regexp.Regexp, value string) bool {
	if pattern == nil {
		return value == ""
	}
	return pattern.MatchString(value)
}

// Classify resolves channel, sub-channel, category and platform for the
// winning touchpoint's tracking strings. Rules are evaluated against the
// snapshot; the built-in source table is the fallback when nothing matches.
func (set *ChannelRuleSet) Classify(source, medium, campaign, content string) (channel, subChannel, category, platform string) {
	source = strings.ToLower(strings.TrimSpace(source))
	medium = strings.ToLower(strings.TrimSpace(medium))
	campaign = strings.ToLower(strings.TrimSpace(campaign))
	content = strings.ToLower(strings.TrimSpace(content))

	for i := range set.rules {
		compiled := &set.rules[i]
		if matchField(compiled.source, source) &&
			matchField(compiled.medium, medium) &&
			matchField(compiled.campaign, campaign) &&
			matchField(compiled.content, content) {
			rule := compiled.rule
			return rule.Channel, rule.SubChannel, rule.Category, rule.Platform
		}
	}
	return fallbackChannel(source)
}

// fallbackChannel is the built-in static source table used when no rule
// matches. Unknown sources become a title-cased channel of their own.
func fallbackChannel(source string) (channel, subChannel, category, platform string) {
	switch source {
	case "google", "an":
		return "Google", "", ChannelCategoryOrganic, "google"
	case "facebook", "fb":
		return "Facebook", "", ChannelCategoryOrganic, "meta"
	case "instagram", "ig", "igshopping":
		return "Instagram", "", ChannelCategoryOrganic, "meta"
	case "shopify", "", "direct":
		return "Direct", "", ChannelCategoryDirect, ""
	default:
		return U.TitleCase(source), "", ChannelCategoryOrganic, ""
	}
}

// ClassifyAttribution fills the channel fields of a resolved attribution.
// Unattributed orders bypass rule evaluation and keep the sentinel channel.
func (set *ChannelRuleSet) ClassifyAttribution(attribution *Attribution) {
	if !attribution.IsAttributed {
		attribution.Channel = ChannelDirectUnknown
		attribution.ChannelCategory = ChannelCategoryDirect
		attribution.IsPaidChannel = false
		return
	}
	attribution.Channel, attribution.SubChannel, attribution.ChannelCategory, attribution.Platform =
		set.Classify(attribution.UTMSource, attribution.UTMMedium, attribution.UTMCampaign, attribution.UTMContent)
	attribution.IsPaidChannel = attribution.ChannelCategory == ChannelCategoryPaid
}

func strPtr(s string) *string { return &s }

// DefaultChannelRules is the built-in rule table used when the rule store
// is empty. Paid rules outrank organic rules so that cpc/ppc traffic never
// degrades to an organic channel.
var DefaultChannelRules = []ChannelRule{
	{
		SourcePattern:   strPtr("google|googleadservices|adwords|an"),
		MediumPattern:   strPtr("cpc|ppc|paid|display|cpm"),
		CampaignPattern: strPtr(".*"), ContentPattern: strPtr(".*"),
		Channel: "Google", SubChannel: "Google Ads",
		Category: ChannelCategoryPaid, Platform: "google",
		Priority: 100, Active: true,
	},
	{
		SourcePattern:   strPtr("facebook|fb"),
		MediumPattern:   strPtr("cpc|ppc|paid|paidsocial|cpm"),
		CampaignPattern: strPtr(".*"), ContentPattern: strPtr(".*"),
		Channel: "Facebook", SubChannel: "Meta Ads",
		Category: ChannelCategoryPaid, Platform: "meta",
		Priority: 100, Active: true,
	},
	{
		SourcePattern:   strPtr("instagram|ig|igshopping"),
		MediumPattern:   strPtr("cpc|ppc|paid|paidsocial|cpm"),
		CampaignPattern: strPtr(".*"), ContentPattern: strPtr(".*"),
		Channel: "Instagram", SubChannel: "Meta Ads",
		Category: ChannelCategoryPaid, Platform: "meta",
		Priority: 100, Active: true,
	},
	// Campaign present on a Meta source is paid traffic even without a
	// paid medium marker.
	{
		SourcePattern:   strPtr("facebook|fb|instagram|ig|igshopping"),
		MediumPattern:   strPtr(".*"),
		CampaignPattern: strPtr(".+"), ContentPattern: strPtr(".*"),
		Channel: "Facebook", SubChannel: "Meta Ads",
		Category: ChannelCategoryPaid, Platform: "meta",
		Priority: 90, Active: true,
	},
	{
		SourcePattern:   strPtr("google|bing|yahoo|duckduckgo|baidu|yandex|qwant"),
		MediumPattern:   strPtr("|organic|search|natural|seo|unpaid|referral"),
		CampaignPattern: strPtr(".*"), ContentPattern: strPtr(".*"),
		Channel: "Organic Search", SubChannel: "",
		Category: ChannelCategoryOrganic, Platform: "",
		Priority: 80, Active: true,
	},
	{
		SourcePattern:   strPtr("facebook|fb|instagram|ig|igshopping"),
		MediumPattern:   strPtr("social|social-media|socialmedia|organic"),
		CampaignPattern: strPtr(".*"), ContentPattern: strPtr(".*"),
		Channel: "Organic Social", SubChannel: "",
		Category: ChannelCategoryOrganic, Platform: "meta",
		Priority: 80, Active: true,
	},
	{
		SourcePattern:   strPtr(".*"),
		MediumPattern:   strPtr("email|mail"),
		CampaignPattern: strPtr(".*"), ContentPattern: strPtr(".*"),
		Channel: "Email", SubChannel: "",
		Category: ChannelCategoryEmail, Platform: "",
		Priority: 70, Active: true,
	},
	{
		SourcePattern:   strPtr(".*"),
		MediumPattern:   strPtr("referral"),
		CampaignPattern: strPtr(".*"), ContentPattern: strPtr(".*"),
		Channel: "Referral", SubChannel: "",
		Category: ChannelCategoryReferral, Platform: "",
		Priority: 60, Active: true,
	},
	{
		SourcePattern:   strPtr("shopify|direct"),
		MediumPattern:   strPtr(".*"),
		CampaignPattern: strPtr(".*"), ContentPattern: strPtr(".*"),
		Channel: "Direct", SubChannel: "",
		Category: ChannelCategoryDirect, Platform: "",
		Priority: 50, Active: true,
	},
}
