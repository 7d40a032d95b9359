package heuristics

// Keyword vocabularies are bilingual (English + Hebrew) to match the
// traffic the detector was tuned on.

var marketingKeywords = []string{
	"sale", "discount", "offer", "promotion", "coupon", "deal",
	"save", "limited time", "free shipping", "order now",
	"black friday", "cyber monday", "clearance", "exclusive",
	"save up to", "new arrival", "flash sale", "קנייה", "מבצע",
	"הנחה", "חיסכון", "קידום", "הצעה", "עד", "שוק",
}

var phishingUrgencyKeywords = []string{
	"verify account", "confirm identity", "update payment",
	"unusual activity", "suspicious login", "compromised",
	"act now", "immediate action", "urgent", "expire",
	"suspended", "locked", "unauthorized", "alert",
	"לאמת", "אישור", "עדכון", "חשד", "פעילות חריגה",
	"חשבון משועבד", "מיידי", "דחוף",
}

var urgencyKeywords = []string{
	"urgent", "immediate", "act now", "suspended", "expire",
	"24 hours", "warning", "critical", "alert", "verify account",
}

var actionKeywords = []string{
	"verify", "click here", "login", "update password", "confirm",
	"unlock", "reset password", "change password",
}

var moneyKeywords = []string{
	"money", "payment", "account", "credit", "billing", "charge", "refund",
	"כסף", "תשלום", "חשבון", "אשראי", "חיוב",
}

var productKeywords = []string{
	"product", "service", "feature", "upgrade", "new", "מוצר", "שירות",
}

var targetBrands = []string{
	"paypal", "google", "apple", "microsoft", "amazon", "facebook", "netflix",
}

// Character-substitution lookalikes of the target brands. Patterns are
// matched against the case-folded sender domain.
var typosquatPatterns = []string{
	"gmai1", "paypa1", "amaz0n", "micros0ft", "yaho0", "app1e",
}

var suspiciousTLDs = []string{
	".ru", ".cn", ".xyz", ".top", ".tk", ".pw", ".work", ".click",
}

var freeProviders = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"hotmail.com": true,
	"outlook.com": true,
	"icloud.com":  true,
}

var legitimateDomains = []string{
	"stripe.com", "github.com", "heroku.com", "firebase.google.com",
	"samsung.com", "il.email.samsung.com",
	"intel.com", "microsoft.com", "apple.com", "amazon.com",
	"linkedin.com", "twitter.com", "facebook.com", "adobe.com",
	"slack.com", "google.com", "aws.amazon.com", "shopify.com",
}

// Cross-platform link hosts that routinely appear in mail from unrelated
// senders; links to these never count as a domain mismatch.
var linkHostWhitelist = []string{
	"facebook.com", "linkedin.com", "twitter.com",
	"instagram.com", "waze.com", "youtube.com", "reddit.com",
	"tiktok.com", "pinterest.com", "github.com",
}
