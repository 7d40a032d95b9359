package scoring

import (
	"math"
	"strings"

	"github.com/mailsift/phishing-detector/internal/heuristics"
)

// Verdict labels.
const (
	LabelPhishing   = "Phishing"
	LabelSuspicious = "Suspicious"
	LabelSafe       = "Safe"
)

// Confidence levels.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
)

// PredictionResult is the combined verdict for one scan.
type PredictionResult struct {
	FinalScore float64 `json:"final_score"`
	MLScore    float64 `json:"ml_score"`
	RuleScore  float64 `json:"rule_score"`
	Label      string  `json:"label"`
	Confidence string  `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Combine merges the classifier probability and the rule score under the
// weighting policy. A strong rule score dominates, a near-zero rule score
// evens the weights, and an active history override uses the ml score
// exclusively regardless of either.
func Combine(mlScore, ruleScore float64, overrideActive bool, sig heuristics.Signals) PredictionResult {
	weightML := 0.7
	weightRule := 0.3

	if ruleScore > 0.8 {
		weightML = 0.3
		weightRule = 0.7
	} else if ruleScore < 0.15 {
		weightML = 0.5
		weightRule = 0.5
	}

	if overrideActive {
		weightML = 1.0
		weightRule = 0.0
	}

	finalScore := weightML*mlScore + weightRule*ruleScore

	var label, confidence string
	switch {
	case finalScore >= 0.70:
		label = LabelPhishing
		confidence = ConfidenceMedium
		if finalScore >= 0.82 {
			confidence = ConfidenceHigh
		}
	case finalScore >= 0.40:
		label = LabelSuspicious
		confidence = ConfidenceMedium
	default:
		label = LabelSafe
		confidence = ConfidenceMedium
		if finalScore <= 0.20 {
			confidence = ConfidenceHigh
		}
	}

	return PredictionResult{
		FinalScore: round3(finalScore),
		MLScore:    round3(mlScore),
		RuleScore:  round3(ruleScore),
		Label:      label,
		Confidence: confidence,
		Reasoning:  reasoning(mlScore, sig),
	}
}

// reasoning builds up to two human-readable notes explaining the verdict,
// ordered by how actionable the signal is.
func reasoning(mlScore float64, sig heuristics.Signals) string {
	var reasons []string

	if sig.Typosquatting {
		reasons = append(reasons, "Domain typosquatting detected")
	}
	if sig.HasIPURL {
		reasons = append(reasons, "Direct IP address in links")
	}
	if sig.DomainMismatch {
		reasons = append(reasons, "Links point to different domain")
	}
	if sig.LanguageRisk > 0.2 {
		reasons = append(reasons, "Suspicious language patterns")
	}
	if sig.SenderReputationRisk > 0.15 {
		reasons = append(reasons, "Questionable sender reputation")
	}

	isMarketing := sig.MarketingLikelihood > 0.5

	if mlScore > 0.7 {
		if isMarketing {
			reasons = append(reasons, "But ML recognizes marketing patterns")
		} else {
			reasons = append(reasons, "Text pattern similar to phishing")
		}
	} else if mlScore < 0.3 {
		reasons = append(reasons, "ML indicates legitimate email")
	}

	if len(reasons) == 0 {
		if isMarketing {
			reasons = append(reasons, "Legitimate promotional email")
		} else {
			reasons = append(reasons, "Standard email - no red flags detected")
		}
	}

	if len(reasons) > 2 {
		reasons = reasons[:2]
	}
	return strings.Join(reasons, " | ")
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
