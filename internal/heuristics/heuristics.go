package heuristics

import (
	"math"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Signals holds the rule score and the sub-signals it was derived from.
// Risk components are rounded to 2 decimals, the rule score to 3.
type Signals struct {
	NumURLs              int
	HasSuspiciousTLD     bool
	HasIPURL             bool
	DomainMismatch       bool
	Typosquatting        bool
	HasUrgencyWords      bool
	HasActionWords       bool
	LanguageRisk         float64
	SenderReputationRisk float64
	MarketingLikelihood  float64
	RuleScore            float64
	SenderDomain         string
}

var (
	senderAddrRe = regexp.MustCompile(`([a-zA-Z0-9._%+-]+)@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	urlRe        = regexp.MustCompile(`https?://[^\s)>\]]+`)
)

// ExtractSenderDomain pulls the domain out of an address-like string,
// best effort. Returns "" when nothing address-shaped is found.
func ExtractSenderDomain(sender string) string {
	if sender == "" {
		return ""
	}
	m := senderAddrRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(sender)))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[2])
}

// ExtractURLs finds scheme-prefixed URLs in email text.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	return urlRe.FindAllString(text, -1)
}

func urlHostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func domainEqOrSubdomain(domain, parent string) bool {
	domain = strings.Trim(strings.ToLower(domain), ".")
	parent = strings.Trim(strings.ToLower(parent), ".")
	return domain == parent || strings.HasSuffix(domain, "."+parent)
}

// IsLegitimateDomain reports whether the domain is a recognized legitimate
// sender: either on the known-good list, or a target brand's own domain
// under a mainstream TLD.
func IsLegitimateDomain(domain string) bool {
	d := strings.TrimSpace(strings.ToLower(domain))
	if d == "" {
		return false
	}

	for _, legit := range legitimateDomains {
		if domainEqOrSubdomain(d, legit) {
			return true
		}
	}

	for _, suffix := range []string{".com", ".org", ".edu", ".gov", ".co.il", ".co.uk"} {
		if strings.HasSuffix(d, suffix) {
			for _, brand := range targetBrands {
				if domainEqOrSubdomain(d, brand+".com") {
					return true
				}
			}
			break
		}
	}

	return false
}

// MarketingLikelihood scores how promotional the email reads, in [0,1].
// Keyword density sets the base tier; product mentions, unsubscribe links
// and bracketed promo tags in the subject add on top.
func MarketingLikelihood(subject, body string) float64 {
	fullText := strings.ToLower(subject + " " + body)
	score := 0.0

	count := 0
	for _, kw := range marketingKeywords {
		if strings.Contains(fullText, kw) {
			count++
		}
	}
	switch {
	case count >= 3:
		score = 0.8
	case count >= 2:
		score = 0.6
	case count >= 1:
		score = 0.3
	}

	if containsAny(fullText, productKeywords) {
		score += 0.2
	}

	if strings.Contains(fullText, "unsubscribe") || strings.Contains(fullText, "הסרה מרשימה") {
		score += 0.3
	}

	subj := strings.ToLower(subject)
	if strings.Contains(subj, "[promo") || strings.Contains(subj, "[marketing") || strings.Contains(subject, "[פרסומת]") {
		score += 0.2
	}

	return math.Min(score, 1.0)
}

// checkDomainMismatch reports whether any URL points away from the sender's
// domain. Free-mail and recognized legitimate senders are exempt, as are
// links into the cross-platform whitelist. First qualifying URL wins.
func checkDomainMismatch(senderDomain string, urls []string) bool {
	senderDomain = strings.TrimSpace(strings.ToLower(senderDomain))
	if senderDomain == "" {
		return false
	}
	if freeProviders[senderDomain] {
		return false
	}
	if IsLegitimateDomain(senderDomain) {
		return false
	}

	for _, raw := range urls {
		linkDomain := urlHostname(raw)
		if linkDomain == "" {
			continue
		}
		if domainEqOrSubdomain(linkDomain, senderDomain) {
			continue
		}
		whitelisted := false
		for _, w := range linkHostWhitelist {
			if domainEqOrSubdomain(linkDomain, w) {
				whitelisted = true
				break
			}
		}
		if whitelisted {
			continue
		}
		return true
	}

	return false
}

func detectTyposquatting(senderDomain string) bool {
	clean := strings.ToLower(senderDomain)
	for _, pattern := range typosquatPatterns {
		if strings.Contains(clean, pattern) {
			return true
		}
	}
	return false
}

// senderReputationRisk scores the sender domain in [0, 0.3]. Recognized
// legitimate domains score 0; free-mail senders asking for action and
// brand-substring lookalikes accumulate partial credit.
func senderReputationRisk(senderDomain, body string) float64 {
	d := strings.ToLower(senderDomain)
	if d == "" {
		return 0.0
	}
	if IsLegitimateDomain(d) {
		return 0.0
	}

	bodyLower := strings.ToLower(body)
	score := 0.0

	if freeProviders[d] && containsAny(bodyLower, actionKeywords) {
		score += 0.1
	}

	for _, brand := range targetBrands {
		if strings.Contains(d, brand) && !IsLegitimateDomain(d) {
			score += 0.15
		}
	}

	return math.Min(score, 0.3)
}

// languagePatternRisk scores suspicious wording. Promotional email gets a
// reduced check only, since urgency and calls to action are normal there.
func languagePatternRisk(subject, body string, marketingLikelihood float64) float64 {
	fullText := strings.ToLower(subject + " " + body)
	score := 0.0

	if marketingLikelihood > 0.5 {
		urgencyCount := countContained(fullText, []string{"urgent", "immediate", "now"})
		actionCount := countContained(fullText, []string{"click", "verify", "confirm"})
		if urgencyCount >= 2 && actionCount >= 2 {
			score += 0.1
		}
		return score
	}

	if strings.Count(fullText, "!") >= 3 {
		score += 0.15
	}

	if countAllCapsWords(subject+" "+body) >= 3 {
		score += 0.1
	}

	hasMoney := containsAny(fullText, moneyKeywords)
	hasUrgency := containsAny(fullText, phishingUrgencyKeywords)
	hasAction := containsAny(fullText, actionKeywords)

	if hasMoney && hasUrgency && hasAction {
		score += 0.25
	} else if hasUrgency && hasAction {
		score += 0.15
	}

	return math.Min(score, 0.4)
}

// Analyze computes the bounded rule score and sub-signals for an email.
// Pure and total; empty fields are valid input.
func Analyze(subject, body, sender string) Signals {
	fullText := strings.ToLower(subject + " " + body)
	senderDomain := ExtractSenderDomain(sender)

	marketing := MarketingLikelihood(subject, body)
	urls := ExtractURLs(fullText)

	hasIPURL := false
	hasSuspiciousTLD := false
	for _, raw := range urls {
		hostname := urlHostname(raw)
		if hostname == "" {
			continue
		}
		if net.ParseIP(hostname) != nil {
			hasIPURL = true
		}
		for _, tld := range suspiciousTLDs {
			if strings.HasSuffix(hostname, tld) {
				hasSuspiciousTLD = true
				break
			}
		}
	}

	hasUrgency := containsAny(fullText, urgencyKeywords)
	hasAction := containsAny(fullText, actionKeywords)

	typosquatting := detectTyposquatting(senderDomain)
	domainMismatch := checkDomainMismatch(senderDomain, urls)
	reputation := senderReputationRisk(senderDomain, body)
	language := languagePatternRisk(subject, body, marketing)

	score := 0.0
	if marketing > 0.7 {
		// Promotional regime: urgency and action language is expected in
		// marketing mail, so only hard technical signals count.
		if typosquatting {
			score += 0.35
		}
		if hasIPURL {
			score += 0.30
		}
		if hasSuspiciousTLD {
			score += 0.15
		}
		if score < 0.2 && domainMismatch {
			score += 0.10
		}
		if IsLegitimateDomain(senderDomain) {
			score = math.Max(0.0, score-0.30)
		}
		language = 0.0
		reputation = 0.0
	} else {
		if typosquatting {
			score += 0.35
		}
		if hasIPURL {
			score += 0.30
		}
		if domainMismatch {
			score += 0.20
		}
		score += language
		score += reputation
		if hasSuspiciousTLD {
			score += 0.15
		}
	}

	return Signals{
		NumURLs:              len(urls),
		HasSuspiciousTLD:     hasSuspiciousTLD,
		HasIPURL:             hasIPURL,
		DomainMismatch:       domainMismatch,
		Typosquatting:        typosquatting,
		HasUrgencyWords:      hasUrgency,
		HasActionWords:       hasAction,
		LanguageRisk:         round2(language),
		SenderReputationRisk: round2(reputation),
		MarketingLikelihood:  round2(marketing),
		RuleScore:            round3(math.Min(score, 1.0)),
		SenderDomain:         senderDomain,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func countContained(text string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			count++
		}
	}
	return count
}

// countAllCapsWords counts words longer than 2 characters whose cased
// characters are all uppercase. Operates on the unlowered text.
func countAllCapsWords(text string) int {
	count := 0
	for _, word := range strings.Fields(text) {
		if len(word) <= 2 {
			continue
		}
		hasCased := false
		allUpper := true
		for _, r := range word {
			if unicode.IsLower(r) {
				allUpper = false
				break
			}
			if unicode.IsUpper(r) {
				hasCased = true
			}
		}
		if hasCased && allUpper {
			count++
		}
	}
	return count
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
