package live

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	Greeting       = "Hello! This is Mira from XYZ Animations. How may I help you?"
	GoAhead        = "Sure, go ahead."
	AllCaptured    = "Thank you! We have all the details. To guide you properly, do you have a budget in mind or would you like an estimate? Is there anything else?"
	ComplaintFirst = "I'm sorry to hear that. May I know your name so I can note this properly?"
	ComplaintAck   = "We have noted your concern and will look into it. May I have your name and project reference so we can follow up?"
	ComplaintDone  = "We have noted your complaint and will get back to you shortly. Is there anything else?"
	UnknownClarify = "Sure! Could you tell me what you're looking for today?"
	AudibleReply   = "Yes, I can hear you. Go ahead."

	QuoteFewMinutes     = "Please give me a few minutes to prepare your quotation. I'll get back to you shortly."
	QuoteGetBack        = "I'll check and get back to you. What price would work for you?"
	QuoteUserPriceSaved = "Noted. I'll get back to you with our best offer."
	QuoteAgreed         = "Great, we'll process your order. You will receive confirmation shortly."
	QuoteRejected       = "Understood. If you change your mind or have another budget in mind, feel free to reach out."
	QuoteAskAcceptance  = "Would that price work for you? Please say yes or no."

	complaintFallbackQuestion = "May I have your name and project reference?"
)

const (
	servicesAnswer            = "We do 2D and 3D animation, short films, explainer videos, and ads. What kind of project would you like to go for?"
	servicesAnswerAlt         = "We take on such projects — animation, promos, short films. Do you have something in mind, or would you like a quote?"
	companyAnswer             = "We're an animation and video studio — 2D, 3D, short films, ads. What would you like to go for?"
	processAnswer             = "Our process: brief and concept, script and storyboard, style and asset design, animation, review and revision, then final delivery. Timelines depend on scope. Anything specific you'd like to know?"
	twoDOr3DAnswer            = "We do both 2D and 3D animation, and mixed projects. Do you have a style in mind for your project?"
	LookingForAnimationAnswer = "Great — we do 2D and 3D animation, short films, ads, and explainers. Do you have a project in mind? I can help with a quote or walk you through our process."
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatAmount renders a rupee amount with thousands separators and no decimals.
func FormatAmount(v float64) string {
	return moneyPrinter.Sprintf("%.0f", v)
}

func quoteSent(amount, pct float64) string {
	return fmt.Sprintf("Your quotation is Rs %s. We can offer a discount of %.0f%%.", FormatAmount(amount), pct)
}

func quoteMoreDiscount(pct, final float64) string {
	return fmt.Sprintf("We can extend the discount to %.0f%% — that would make it Rs %s.", pct, FormatAmount(final))
}

func quoteExceptionOffer(amount float64) string {
	return fmt.Sprintf("We can do it at Rs %s. Would that work for you?", FormatAmount(amount))
}

func declinedReason(amount float64) string {
	return "User declined exception price of Rs " + FormatAmount(amount)
}

var audiblePhrases = []string{
	"am i audible",
	"am i being heard",
	"can you hear me",
	"can u hear me",
	"do you hear me",
	"is my mic working",
	"mic check",
	"testing 1 2 3",
	"testing one two three",
	"hello can you hear",
	"are you there",
}

// IsAudibilityCheck reports whether the user is only checking the line.
func IsAudibilityCheck(msg string) bool {
	return containsAny(normalizeMessage(msg), audiblePhrases)
}

type faqEntry struct {
	keywords []string
	answer   string
}

// checked in order; the first keyword hit wins
var faqTable = []faqEntry{
	{[]string{"2d", "3d", "two d", "three d", "animation style"}, twoDOr3DAnswer},
	{[]string{"process", "how do you", "how does it work", "timeline", "steps"}, processAnswer},
	{[]string{"company", "about", "this company", "xyz"}, companyAnswer},
	{[]string{"looking for", "need animation", "want animation", "animations"}, LookingForAnimationAnswer},
	{[]string{"services", "offer", "what do you", "provide", "do you do"}, servicesAnswer},
}

// FAQReply answers a general services question. The generic services answer
// alternates with a second wording on odd turns so it is not repeated verbatim.
func FAQReply(msg string, turnIndex int) string {
	m := normalizeMessage(msg)
	answer := servicesAnswer
	for _, e := range faqTable {
		if containsAny(m, e.keywords) {
			answer = e.answer
			break
		}
	}
	if answer == servicesAnswer && turnIndex%2 == 1 {
		return servicesAnswerAlt
	}
	return answer
}

var (
	quoteAskPatterns = compile(
		`\b(quote|quotation|estimate|estimation|price|quoted)\b`,
		`how\s+much`,
		`what('s|s)\s+(the\s+)?(price|cost)`,
		`give\s+me\s+(a\s+)?(quote|quotation|estimate|price)`,
		`send\s+(me\s+)?(the\s+)?(quote|quotation|price)`,
		`(get|need|want)\s+(a\s+)?(quote|quotation|estimate|price)`,
	)
	reducePatterns = compile(
		`\b(reduce|lower|discount|cheaper|less|bring\s+down)\b`,
		`can(\s+you)?\s+(reduce|lower|give\s+more\s+discount)`,
		`any\s+discount`,
		`reduce\s+(the\s+)?price`,
	)

	thousandsSuffix = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*k\b`)
	thousandsWord   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:thousand|thou)\b`)
	multiDigit      = regexp.MustCompile(`\d{2,}(?:\.\d+)?`)
	singleNumber    = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
)

var (
	agreeExact    = []string{"yes", "ok", "sure", "agreed", "done", "fine", "sounds good", "go ahead"}
	agreePrefix   = []string{"yes ", "ok ", "sure "}
	declineExact  = []string{"no", "nope", "not really", "can't", "cannot", "too high", "won't work"}
	declinePrefix = []string{"no ", "not "}
)

func AsksForQuote(msg string) bool {
	return matchesAny(normalizeMessage(msg), quoteAskPatterns)
}

func AsksToReducePrice(msg string) bool {
	return matchesAny(normalizeMessage(msg), reducePatterns)
}

func Agrees(msg string) bool {
	m := normalizeMessage(msg)
	return m != "" && (oneOf(m, agreeExact) || hasAnyPrefix(m, agreePrefix))
}

func Declines(msg string) bool {
	m := normalizeMessage(msg)
	return m != "" && (oneOf(m, declineExact) || hasAnyPrefix(m, declinePrefix))
}

// ExtractPrice reads a price such as "50k", "40 thousand" or "45000". The last
// multi-digit number wins when there is no explicit thousands marker.
func ExtractPrice(msg string) (float64, bool) {
	m := strings.TrimSpace(msg)
	if m == "" {
		return 0, false
	}
	if g := thousandsSuffix.FindStringSubmatch(m); g != nil {
		return parseFloat(g[1]) * 1000, true
	}
	if g := thousandsWord.FindStringSubmatch(m); g != nil {
		return parseFloat(g[1]) * 1000, true
	}
	if all := multiDigit.FindAllString(m, -1); len(all) > 0 {
		return parseFloat(all[len(all)-1]), true
	}
	if all := singleNumber.FindAllStringSubmatch(m, -1); len(all) > 0 {
		return parseFloat(all[len(all)-1][1]), true
	}
	return 0, false
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func normalizeMessage(msg string) string {
	return strings.ToLower(strings.TrimSpace(msg))
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func matchesAny(m string, patterns []*regexp.Regexp) bool {
	if m == "" {
		return false
	}
	for _, p := range patterns {
		if p.MatchString(m) {
			return true
		}
	}
	return false
}

func containsAny(m string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(m, n) {
			return true
		}
	}
	return false
}

func oneOf(m string, options []string) bool {
	for _, o := range options {
		if m == o {
			return true
		}
	}
	return false
}

func hasAnyPrefix(m string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(m, p) {
			return true
		}
	}
	return false
}
